package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/leitor/internal/domain/models"
)

// ErrDuplicateBarcode is returned when a product with the same barcode exists.
var ErrDuplicateBarcode = errors.New("Código de barras já cadastrado")

// Store defines the persistence operations behind the development backend.
type Store interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, req models.NewProduct) (models.Product, error)
	ListScans(ctx context.Context) ([]models.ScanEvent, error)
	// RecordScan increments the scan row of barcode, creating it on first read.
	RecordScan(ctx context.Context, barcode string) (created bool, err error)
	Report(ctx context.Context) ([]models.ReportRow, error)
	Close(ctx context.Context) error
}
