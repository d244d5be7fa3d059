package cadastro

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/domain/models"
)

// Lister loads the product catalog.
type Lister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// CatalogState is a copy of the loaded catalog.
type CatalogState struct {
	Products []models.Product
	Loading  bool
	Error    string
}

// Catalog is the product list that follows registrations.
type Catalog struct {
	lister Lister
	logger *zap.Logger

	mu    sync.Mutex
	state CatalogState
}

// NewCatalog wires a catalog view.
func NewCatalog(lister Lister, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{lister: lister, logger: logger}
}

// Refresh reloads the catalog. On failure the previous list is kept and the
// error is recorded in state.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.state.Loading = true
	c.mu.Unlock()

	products, err := c.lister.ListProducts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if err != nil {
		c.state.Error = fmt.Sprintf("Erro ao carregar produtos: %v", err)
		c.logger.Warn("failed to load catalog", zap.Error(err))
		return err
	}
	if products == nil {
		products = []models.Product{}
	}
	c.state.Products = products
	c.state.Error = ""
	return nil
}

// State returns a copy of the catalog.
func (c *Catalog) State() CatalogState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Products = append([]models.Product(nil), s.Products...)
	return s
}
