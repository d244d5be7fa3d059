package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/internal/repository"
)

func newClockedStore() *Store {
	s := New()
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestCreateProductRejectsDuplicates(t *testing.T) {
	s := newClockedStore()
	ctx := context.Background()

	first, err := s.CreateProduct(ctx, models.NewProduct{Barcode: " 789 ", Description: " Café "})
	if err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	if first.ID != 1 || first.Barcode != "789" || first.Description != "Café" {
		t.Fatalf("product = %+v", first)
	}

	if _, err := s.CreateProduct(ctx, models.NewProduct{Barcode: "789", Description: "Outro"}); !errors.Is(err, repository.ErrDuplicateBarcode) {
		t.Fatalf("duplicate err = %v", err)
	}

	if _, err := s.CreateProduct(ctx, models.NewProduct{Barcode: "790", Description: "Chá"}); err != nil {
		t.Fatalf("CreateProduct() error = %v", err)
	}
	products, _ := s.ListProducts(ctx)
	if len(products) != 2 || products[0].Barcode != "790" {
		t.Fatalf("products not newest first: %+v", products)
	}
}

func TestRecordScanAggregatesPerBarcode(t *testing.T) {
	s := newClockedStore()
	ctx := context.Background()
	_, _ = s.CreateProduct(ctx, models.NewProduct{Barcode: "789", Description: "Café"})

	for _, code := range []string{"789", "789", "000", "789"} {
		if _, err := s.RecordScan(ctx, code); err != nil {
			t.Fatalf("RecordScan() error = %v", err)
		}
	}

	scans, _ := s.ListScans(ctx)
	if len(scans) != 2 {
		t.Fatalf("scans = %+v", scans)
	}
	if scans[0].Barcode != "789" || scans[0].Quantity != 3 || scans[0].Description != "Café" {
		t.Fatalf("latest scan = %+v", scans[0])
	}
	if scans[1].Description != models.UnidentifiedDescription {
		t.Fatalf("unknown barcode description = %q", scans[1].Description)
	}

	report, _ := s.Report(ctx)
	if len(report) != 2 || report[0] != (models.ReportRow{Description: "Café", Quantity: 3}) {
		t.Fatalf("report = %+v", report)
	}
}
