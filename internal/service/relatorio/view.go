package relatorio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

const exportDateLayout = "2006-01-02 15:04:05"

// Source loads the raw report payload.
type Source interface {
	Report(ctx context.Context) ([]byte, error)
}

// Exporter appends rows to an external sheet.
type Exporter interface {
	AppendRows(ctx context.Context, rows [][]interface{}) error
}

// State is a copy of the report screen.
type State struct {
	Loading bool
	Error   string
	Debug   string
	Report  Report
}

// View is the report screen.
type View struct {
	source Source
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	state State
}

// NewView wires a report screen.
func NewView(source Source, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{source: source, logger: logger, now: time.Now}
}

// State returns a copy of the screen.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.state
	s.Report.Bars = append([]Bar(nil), s.Report.Bars...)
	return s
}

// Load fetches and validates the report. On any failure the rows are
// cleared and the error is kept as text in state.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.state.Loading = true
	v.state.Error = ""
	v.state.Debug = "Conectando ao backend..."
	v.mu.Unlock()

	report, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Loading = false

	if err != nil {
		msg := describe(err)
		v.state.Report = Report{}
		v.state.Error = "Falha ao carregar relatório: " + msg
		v.state.Debug = "Erro: " + msg
		v.logger.Error("failed to load report", zap.Error(err))
		return err
	}

	v.state.Report = report
	v.state.Debug = fmt.Sprintf("%d itens carregados com sucesso", report.TotalItems)
	return nil
}

func (v *View) fetch(ctx context.Context) (Report, error) {
	body, err := v.source.Report(ctx)
	if err != nil {
		return Report{}, err
	}

	rows, received, err := Parse(body)
	if err != nil {
		return Report{}, err
	}

	report := Build(rows)
	report.Received = received
	report.Dropped = received - len(rows)
	if report.Dropped > 0 {
		v.logger.Warn("report rows dropped for invalid shape",
			zap.Int("received", received),
			zap.Int("kept", len(rows)))
	}
	return report, nil
}

// Export appends the loaded rows to exporter, one row per product stamped
// with the export time.
func (v *View) Export(ctx context.Context, exporter Exporter) (int, error) {
	state := v.State()
	if len(state.Report.Bars) == 0 {
		return 0, nil
	}

	stamp := v.now().Format(exportDateLayout)
	rows := make([][]interface{}, 0, len(state.Report.Bars))
	for _, bar := range state.Report.Bars {
		rows = append(rows, []interface{}{stamp, bar.Description, bar.Quantity})
	}

	if err := exporter.AppendRows(ctx, rows); err != nil {
		return 0, fmt.Errorf("export report: %w", err)
	}
	v.logger.Info("report exported", zap.Int("rows", len(rows)))
	return len(rows), nil
}

func describe(err error) string {
	if errors.Is(err, ErrNotArray) {
		return "Dados não são um array"
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d: %s", statusErr.Code, statusErr.StatusText())
	}
	var transportErr *backend.TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Err.Error()
	}
	return err.Error()
}
