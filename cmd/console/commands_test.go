package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/config"
	"github.com/mamadbah2/leitor/internal/repository/memory"
	"github.com/mamadbah2/leitor/internal/server/handlers"
	"github.com/mamadbah2/leitor/internal/server/router"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(router.New(handlers.NewAPIHandler(memory.New(), nil), nil))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Backend: config.BackendConfig{BaseURL: srv.URL, RequestTimeout: 2 * time.Second},
		Polling: config.PollingConfig{ScanInterval: 20 * time.Millisecond},
		Stream:  config.StreamConfig{DefaultURL: "http://cam/video"},
	}
	out := &bytes.Buffer{}
	return &app{cfg: cfg, client: backend.NewClient(cfg.Backend), out: out, logger: zap.NewNop()}, out
}

func TestRegisterAndReport(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	if err := a.run(ctx, []string{"cadastrar", "-codigo", "789", "-descricao", "Café"}); err != nil {
		t.Fatalf("cadastrar: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "Produto cadastrado com sucesso!") || !strings.Contains(out.String(), "Produtos (1)") {
		t.Fatalf("output = %q", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"cadastrar", "-codigo", "789", "-descricao", "Café"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if !strings.Contains(out.String(), "Código de barras já cadastrado") {
		t.Fatalf("output = %q", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"cadastrar", "-codigo", "", "-descricao", "Café"}); err == nil {
		t.Fatal("blank barcode should fail")
	}
	if !strings.Contains(out.String(), "Todos os campos são obrigatórios") {
		t.Fatalf("output = %q", out)
	}

	for i := 0; i < 3; i++ {
		if err := a.run(ctx, []string{"ler", "789"}); err != nil {
			t.Fatalf("ler: %v", err)
		}
	}

	out.Reset()
	if err := a.run(ctx, []string{"relatorio", "-largura", "10"}); err != nil {
		t.Fatalf("relatorio: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "Total de produtos: 1 | Total de leituras: 3") {
		t.Fatalf("output = %q", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"leituras", "-uma-vez"}); err != nil {
		t.Fatalf("leituras: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "Leituras (1)") || !strings.Contains(out.String(), "Café") {
		t.Fatalf("output = %q", out)
	}
}

func TestStreamCommands(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	if err := a.run(ctx, []string{"stream", "iniciar", "-url", "http://10.0.0.5:8080/video"}); err != nil {
		t.Fatalf("stream iniciar: %v\n%s", err, out)
	}
	if !strings.Contains(out.String(), "Status: Ativo") {
		t.Fatalf("output = %q", out)
	}

	out.Reset()
	if err := a.run(ctx, []string{"stream", "parar"}); err != nil {
		t.Fatalf("stream parar: %v", err)
	}
	if !strings.Contains(out.String(), "Stream parado") || !strings.Contains(out.String(), "Status: Inativo") {
		t.Fatalf("output = %q", out)
	}
}

func TestWatchStopsWithContext(t *testing.T) {
	a, out := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := a.run(ctx, []string{"leituras"}); err != nil {
		t.Fatalf("leituras: %v", err)
	}
	if !strings.Contains(out.String(), "Nenhuma leitura encontrada") {
		t.Fatalf("output = %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.run(context.Background(), []string{"voar"}); err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out.String(), "comando desconhecido") {
		t.Fatalf("output = %q", out)
	}
}
