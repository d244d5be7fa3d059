package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/leitor/internal/config"
	"github.com/mamadbah2/leitor/internal/repository/sheets"
	"github.com/mamadbah2/leitor/internal/service/cadastro"
	"github.com/mamadbah2/leitor/internal/service/leituras"
	"github.com/mamadbah2/leitor/internal/service/relatorio"
	"github.com/mamadbah2/leitor/internal/service/stream"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

const usage = `uso: leitor <comando> [opções]

comandos:
  leituras [-uma-vez]                     acompanha as leituras em tempo real
  cadastrar -codigo C -descricao D        cadastra um produto
  produtos                                lista os produtos cadastrados
  stream iniciar [-url U] | stream parar  controla o stream da câmera
  relatorio [-largura N] [-exportar]      mostra o relatório por produto
  ler <codigo>                            registra uma leitura manual
`

// errFailed marks a command whose outcome was already reported to the user.
var errFailed = errors.New("command failed")

type app struct {
	cfg    *config.Config
	client backend.Client
	out    io.Writer
	logger *zap.Logger
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errFailed
	}

	switch args[0] {
	case "leituras":
		return a.watchScans(ctx, args[1:])
	case "cadastrar":
		return a.register(ctx, args[1:])
	case "produtos":
		return a.listProducts(ctx)
	case "stream":
		return a.stream(ctx, args[1:])
	case "relatorio":
		return a.report(ctx, args[1:])
	case "ler":
		return a.recordScan(ctx, args[1:])
	case "ajuda", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "comando desconhecido: %s\n\n%s", args[0], usage)
		return errFailed
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) watchScans(ctx context.Context, args []string) error {
	fs := a.flagSet("leituras")
	once := fs.Bool("uma-vez", false, "mostra a tabela uma vez e sai")
	if err := fs.Parse(args); err != nil {
		return errFailed
	}

	board := leituras.NewBoard(a.client, a.cfg.Polling.ScanInterval, a.logger.Named("svc.leituras"))
	changes := make(chan leituras.State, 1)
	board.OnChange(func(s leituras.State) {
		// keep only the newest snapshot for the renderer
		select {
		case <-changes:
		default:
		}
		changes <- s
	})

	if *once {
		board.Mount(ctx)
		defer board.Unmount()
		if err := board.Refresh(ctx); err != nil {
			fmt.Fprintf(a.out, "Erro ao buscar leituras: %v\n", err)
			return errFailed
		}
		return leituras.Render(a.out, board.State())
	}

	g, gctx := errgroup.WithContext(ctx)
	board.Mount(gctx)

	g.Go(func() error {
		<-gctx.Done()
		board.Unmount()
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case state := <-changes:
				fmt.Fprint(a.out, "\033[H\033[2J")
				if err := leituras.Render(a.out, state); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "\natualizado às %s (Ctrl+C para sair)\n", state.UpdatedAt.Format("15:04:05"))
			}
		}
	})

	return g.Wait()
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flagSet("cadastrar")
	barcode := fs.String("codigo", "", "código de barras")
	description := fs.String("descricao", "", "descrição do produto")
	if err := fs.Parse(args); err != nil {
		return errFailed
	}

	catalog := cadastro.NewCatalog(a.client, a.logger.Named("svc.catalogo"))
	form := cadastro.NewForm(a.client, catalog, a.logger.Named("svc.cadastro"))
	form.SetBarcode(*barcode)
	form.SetDescription(*description)

	err := form.Submit(ctx)
	fmt.Fprintln(a.out, form.State().Message.Text)
	if err != nil {
		return errFailed
	}
	return renderProducts(a.out, catalog.State())
}

func (a *app) listProducts(ctx context.Context) error {
	catalog := cadastro.NewCatalog(a.client, a.logger.Named("svc.catalogo"))
	if err := catalog.Refresh(ctx); err != nil {
		fmt.Fprintln(a.out, catalog.State().Error)
		return errFailed
	}
	return renderProducts(a.out, catalog.State())
}

func (a *app) stream(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errFailed
	}

	opts := stream.Options{
		DefaultURL:        a.cfg.Stream.DefaultURL,
		FireAndForgetStop: a.cfg.Stream.FireAndForgetStop,
	}

	var (
		control *stream.Control
		err     error
	)
	switch args[0] {
	case "iniciar":
		fs := a.flagSet("stream iniciar")
		url := fs.String("url", a.cfg.Stream.DefaultURL, "URL do stream da câmera IP")
		if perr := fs.Parse(args[1:]); perr != nil {
			return errFailed
		}
		control = stream.NewControl(a.client, opts, a.logger.Named("svc.stream"))
		if err = control.SetURL(*url); err == nil {
			err = control.Start(ctx)
		}
	case "parar":
		opts.Running = true
		control = stream.NewControl(a.client, opts, a.logger.Named("svc.stream"))
		err = control.Stop(ctx)
	default:
		fmt.Fprintf(a.out, "ação desconhecida: %s\n", args[0])
		return errFailed
	}

	state := control.State()
	fmt.Fprintf(a.out, "%s\nStatus: %s\n", state.Alert, state.Status)
	if err != nil {
		return errFailed
	}
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := a.flagSet("relatorio")
	width := fs.Int("largura", 40, "largura máxima das barras")
	export := fs.Bool("exportar", false, "exporta o relatório para o Google Sheets")
	if err := fs.Parse(args); err != nil {
		return errFailed
	}

	view := relatorio.NewView(a.client, a.logger.Named("svc.relatorio"))
	if err := view.Load(ctx); err != nil {
		state := view.State()
		fmt.Fprintln(a.out, state.Error)
		return errFailed
	}

	state := view.State()
	if err := relatorio.Render(a.out, state.Report, *width); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Debug: %s\n", state.Debug)

	if !*export {
		return nil
	}
	if !a.cfg.Sheets.Enabled() {
		fmt.Fprintln(a.out, "Exportação não configurada (GOOGLE_SHEET_REPORT_ID)")
		return errFailed
	}

	exporter, err := sheets.NewGoogleSheetRepository(ctx, a.cfg.Sheets, a.logger.Named("repo.sheets"))
	if err != nil {
		fmt.Fprintf(a.out, "Erro ao exportar relatório: %v\n", err)
		return errFailed
	}
	n, err := view.Export(ctx, exporter)
	if err != nil {
		fmt.Fprintf(a.out, "Erro ao exportar relatório: %v\n", err)
		return errFailed
	}
	fmt.Fprintf(a.out, "%d linhas exportadas\n", n)
	return nil
}

func (a *app) recordScan(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		fmt.Fprint(a.out, usage)
		return errFailed
	}

	msg, err := a.client.RecordScan(ctx, strings.TrimSpace(args[0]))
	if err != nil {
		fmt.Fprintf(a.out, "Erro ao registrar leitura: %v\n", err)
		return errFailed
	}
	fmt.Fprintln(a.out, msg.Message)
	return nil
}

func renderProducts(w io.Writer, state cadastro.CatalogState) error {
	if state.Error != "" {
		_, err := fmt.Fprintln(w, state.Error)
		return err
	}
	fmt.Fprintf(w, "Produtos (%d)\n", len(state.Products))
	for _, p := range state.Products {
		registered := p.RegisteredAt.Format(time.DateTime)
		if _, err := fmt.Fprintf(w, "  %s  %s  %s\n", p.Barcode, p.Description, registered); err != nil {
			return err
		}
	}
	return nil
}
