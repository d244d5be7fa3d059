package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"

	"github.com/mamadbah2/leitor/internal/config"
)

func TestAppendRows(t *testing.T) {
	var gotValues [][]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1/values/") || !strings.HasSuffix(r.URL.Path, ":append") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("valueInputOption"); got != "USER_ENTERED" {
			t.Errorf("valueInputOption = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Values [][]interface{} `json:"values"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotValues = payload.Values
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	}))
	defer srv.Close()

	repo, err := NewGoogleSheetRepository(context.Background(),
		config.SheetsConfig{SpreadsheetID: "sheet-1", ReportRange: "Relatorio!A:C"},
		nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGoogleSheetRepository() error = %v", err)
	}

	rows := [][]interface{}{{"2024-03-05 18:00:00", "Café", 3}}
	if err := repo.AppendRows(context.Background(), rows); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
	if len(gotValues) != 1 || gotValues[0][1] != "Café" || gotValues[0][2] != float64(3) {
		t.Fatalf("values = %v", gotValues)
	}
}

func TestAppendRowsSkipsEmpty(t *testing.T) {
	repo := &GoogleSheetRepository{}
	if err := repo.AppendRows(context.Background(), nil); err != nil {
		t.Fatalf("AppendRows() error = %v", err)
	}
}

func TestRequiresRange(t *testing.T) {
	if _, err := NewGoogleSheetRepository(context.Background(), config.SheetsConfig{SpreadsheetID: "x"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
