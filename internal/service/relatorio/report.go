package relatorio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/mamadbah2/leitor/internal/domain/models"
)

var (
	// ErrNotArray is returned when the report payload is not a JSON array.
	ErrNotArray = errors.New("dados não são um array")
	// ErrInvalidJSON is returned when the report payload is not valid JSON.
	ErrInvalidJSON = errors.New("invalid json payload")
)

const (
	barGlyph        = "█"
	descriptionCols = 24
)

// Bar is one rendered report row.
type Bar struct {
	Description string
	Quantity    int
	// Percent is the bar width relative to the largest quantity, 0-100.
	Percent float64
}

// Report is the normalized view of GET /relatorio.
type Report struct {
	Bars       []Bar
	TotalItems int
	TotalScans int
	Received   int
	Dropped    int
}

// Parse validates the payload shape. Elements that are not objects with a
// string descricao and a non-negative integral quantidade are dropped; the
// returned count is the number of elements received.
func Parse(body []byte) ([]models.ReportRow, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, ErrInvalidJSON
	}
	payload := gjson.ParseBytes(body)
	if !payload.IsArray() {
		return nil, 0, ErrNotArray
	}

	elements := payload.Array()
	rows := make([]models.ReportRow, 0, len(elements))
	for _, item := range elements {
		row, ok := parseRow(item)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows, len(elements), nil
}

func parseRow(item gjson.Result) (models.ReportRow, bool) {
	if !item.IsObject() {
		return models.ReportRow{}, false
	}
	description := item.Get("descricao")
	quantity := item.Get("quantidade")
	if description.Type != gjson.String || quantity.Type != gjson.Number {
		return models.ReportRow{}, false
	}
	q := quantity.Float()
	if q < 0 || q != math.Trunc(q) || q > math.MaxInt32 {
		return models.ReportRow{}, false
	}
	return models.ReportRow{Description: description.String(), Quantity: int(q)}, true
}

// Build computes bar widths and totals. The divisor is floored at 1 so an
// empty or all-zero report never divides by zero.
func Build(rows []models.ReportRow) Report {
	maxQuantity := 1
	for _, row := range rows {
		if row.Quantity > maxQuantity {
			maxQuantity = row.Quantity
		}
	}

	report := Report{Bars: make([]Bar, 0, len(rows))}
	for _, row := range rows {
		report.Bars = append(report.Bars, Bar{
			Description: row.Description,
			Quantity:    row.Quantity,
			Percent:     float64(row.Quantity) / float64(maxQuantity) * 100,
		})
		report.TotalScans += row.Quantity
	}
	report.TotalItems = len(report.Bars)
	return report
}

// Render draws the report as text bars at most width glyphs long.
func Render(w io.Writer, report Report, width int) error {
	if width < 1 {
		width = 1
	}

	var b strings.Builder
	b.WriteString("Relatório - Leituras por Produto\n")
	if len(report.Bars) == 0 {
		b.WriteString("Nenhuma leitura registrada até o momento.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, bar := range report.Bars {
		cells := int(math.Round(bar.Percent / 100 * float64(width)))
		if cells == 0 && bar.Quantity > 0 {
			cells = 1
		}
		fmt.Fprintf(&b, "%s %s %d\n", fitColumn(bar.Description, descriptionCols), strings.Repeat(barGlyph, cells), bar.Quantity)
	}
	fmt.Fprintf(&b, "Total de produtos: %d | Total de leituras: %d\n", report.TotalItems, report.TotalScans)

	_, err := io.WriteString(w, b.String())
	return err
}

func fitColumn(s string, cols int) string {
	n := utf8.RuneCountInString(s)
	if n > cols {
		runes := []rune(s)
		return string(runes[:cols-1]) + "…"
	}
	return s + strings.Repeat(" ", cols-n)
}
