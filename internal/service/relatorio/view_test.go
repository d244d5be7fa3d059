package relatorio

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

type fakeSource struct {
	body []byte
	err  error
}

func (s *fakeSource) Report(ctx context.Context) ([]byte, error) {
	return s.body, s.err
}

type fakeExporter struct {
	rows [][]interface{}
	err  error
}

func (e *fakeExporter) AppendRows(ctx context.Context, rows [][]interface{}) error {
	e.rows = rows
	return e.err
}

func TestViewLoad(t *testing.T) {
	source := &fakeSource{body: []byte(`[{"descricao":"A","quantidade":5},{"descricao":"B","quantidade":10},{"quantidade":3}]`)}
	view := NewView(source, nil)

	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	state := view.State()
	if state.Loading || state.Error != "" {
		t.Fatalf("state = %+v", state)
	}
	if state.Report.TotalItems != 2 || state.Report.TotalScans != 15 {
		t.Fatalf("report = %+v", state.Report)
	}
	if state.Report.Received != 3 || state.Report.Dropped != 1 {
		t.Fatalf("received/dropped = %d/%d", state.Report.Received, state.Report.Dropped)
	}
	if state.Debug != "2 itens carregados com sucesso" {
		t.Fatalf("debug = %q", state.Debug)
	}
}

func TestViewLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		source    *fakeSource
		wantError string
	}{
		{
			name:      "http failure",
			source:    &fakeSource{err: &backend.StatusError{Code: http.StatusInternalServerError, Status: "500 Internal Server Error"}},
			wantError: "Falha ao carregar relatório: HTTP 500: Internal Server Error",
		},
		{
			name:      "not an array",
			source:    &fakeSource{body: []byte(`{"error":"x"}`)},
			wantError: "Falha ao carregar relatório: Dados não são um array",
		},
		{
			name:      "network failure",
			source:    &fakeSource{err: &backend.TransportError{Op: "load report", Err: errors.New("connection refused")}},
			wantError: "Falha ao carregar relatório: connection refused",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			view := NewView(&fakeSource{body: []byte(`[{"descricao":"A","quantidade":1}]`)}, nil)
			if err := view.Load(context.Background()); err != nil {
				t.Fatalf("first Load() error = %v", err)
			}

			view.source = tc.source
			if err := view.Load(context.Background()); err == nil {
				t.Fatal("expected error")
			}
			state := view.State()
			if state.Error != tc.wantError {
				t.Fatalf("error = %q, want %q", state.Error, tc.wantError)
			}
			if len(state.Report.Bars) != 0 {
				t.Fatal("rows must be cleared on failure")
			}
			if state.Loading {
				t.Fatal("loading must be cleared")
			}
		})
	}
}

func TestViewExport(t *testing.T) {
	view := NewView(&fakeSource{body: []byte(`[{"descricao":"A","quantidade":5}]`)}, nil)
	view.now = func() time.Time { return time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC) }

	exporter := &fakeExporter{}
	if n, err := view.Export(context.Background(), exporter); err != nil || n != 0 {
		t.Fatalf("Export() before load = %d, %v", n, err)
	}

	if err := view.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	n, err := view.Export(context.Background(), exporter)
	if err != nil || n != 1 {
		t.Fatalf("Export() = %d, %v", n, err)
	}
	row := exporter.rows[0]
	if row[0] != "2024-03-05 18:00:00" || row[1] != "A" || row[2] != 5 {
		t.Fatalf("row = %v", row)
	}

	exporter.err = errors.New("quota exceeded")
	if _, err := view.Export(context.Background(), exporter); err == nil {
		t.Fatal("expected export error")
	}
}
