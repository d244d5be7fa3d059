package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/internal/repository"
)

// Store is an in-process repository.Store.
type Store struct {
	mu         sync.RWMutex
	products   []models.Product
	scans      []models.ScanEvent
	nextProdID int
	nextScanID int
	now        func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{nextProdID: 1, nextScanID: 1, now: models.Now}
}

var _ repository.Store = (*Store)(nil)

// ListProducts returns products newest first.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Product(nil), s.products...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RegisteredAt.Time.After(out[j].RegisteredAt.Time)
	})
	return out, nil
}

// CreateProduct registers a product, rejecting duplicate barcodes.
func (s *Store) CreateProduct(ctx context.Context, req models.NewProduct) (models.Product, error) {
	req = req.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Barcode == req.Barcode {
			return models.Product{}, repository.ErrDuplicateBarcode
		}
	}

	product := models.Product{
		ID:           s.nextProdID,
		Barcode:      req.Barcode,
		Description:  req.Description,
		RegisteredAt: models.NewTimestamp(s.now()),
	}
	s.nextProdID++
	s.products = append(s.products, product)
	return product, nil
}

// ListScans returns scan rows most recently read first.
func (s *Store) ListScans(ctx context.Context) ([]models.ScanEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.ScanEvent(nil), s.scans...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReadAt.Time.After(out[j].ReadAt.Time)
	})
	return out, nil
}

// RecordScan increments the row of barcode or creates it with the catalog
// description.
func (s *Store) RecordScan(ctx context.Context, barcode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := models.NewTimestamp(s.now())
	for i := range s.scans {
		if s.scans[i].Barcode == barcode {
			s.scans[i].Quantity++
			s.scans[i].ReadAt = now
			return false, nil
		}
	}

	description := models.UnidentifiedDescription
	for _, p := range s.products {
		if p.Barcode == barcode {
			description = p.Description
			break
		}
	}

	s.scans = append(s.scans, models.ScanEvent{
		ID:          s.nextScanID,
		Barcode:     barcode,
		Description: description,
		Quantity:    1,
		ReadAt:      now,
	})
	s.nextScanID++
	return true, nil
}

// Report sums quantities per description, largest first.
func (s *Store) Report(ctx context.Context) ([]models.ReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int)
	order := make([]string, 0)
	for _, scan := range s.scans {
		if _, seen := totals[scan.Description]; !seen {
			order = append(order, scan.Description)
		}
		totals[scan.Description] += scan.Quantity
	}

	rows := make([]models.ReportRow, 0, len(order))
	for _, description := range order {
		rows = append(rows, models.ReportRow{Description: description, Quantity: totals[description]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Quantity > rows[j].Quantity
	})
	return rows, nil
}

// Close is a no-op.
func (s *Store) Close(ctx context.Context) error {
	return nil
}
