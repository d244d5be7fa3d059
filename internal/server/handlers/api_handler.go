package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/internal/repository"
)

// APIHandler serves the barcode backend REST contract over a repository.Store.
type APIHandler struct {
	store  repository.Store
	logger *zap.Logger

	mu        sync.Mutex
	streaming bool
	streamURL string
}

// NewAPIHandler constructs the HTTP handler adapter.
func NewAPIHandler(store repository.Store, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{store: store, logger: logger}
}

// Root answers the API banner.
func (h *APIHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, models.APIMessage{Message: "Barcode Reader API"})
}

// ListProducts serves GET /produtos.
func (h *APIHandler) ListProducts(c *gin.Context) {
	products, err := h.store.ListProducts(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreateProduct serves POST /produtos.
func (h *APIHandler) CreateProduct(c *gin.Context) {
	var req models.NewProduct
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid product payload", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, models.APIMessage{Detail: "codigo_barras e descricao são obrigatórios"})
		return
	}
	if !req.Complete() {
		c.JSON(http.StatusUnprocessableEntity, models.APIMessage{Detail: "codigo_barras e descricao são obrigatórios"})
		return
	}

	product, err := h.store.CreateProduct(c.Request.Context(), req)
	if errors.Is(err, repository.ErrDuplicateBarcode) {
		c.JSON(http.StatusConflict, models.APIMessage{Detail: repository.ErrDuplicateBarcode.Error()})
		return
	}
	if err != nil {
		h.logger.Error("failed creating product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create product"})
		return
	}

	h.logger.Info("product created", zap.Int("id", product.ID), zap.String("barcode", product.Barcode))
	c.JSON(http.StatusOK, product)
}

// ListScans serves GET /leituras.
func (h *APIHandler) ListScans(c *gin.Context) {
	scans, err := h.store.ListScans(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing scans", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list scans"})
		return
	}
	c.JSON(http.StatusOK, scans)
}

// RecordScan serves POST /leituras?codigo_barras=..., the entry point used by
// the decoder.
func (h *APIHandler) RecordScan(c *gin.Context) {
	barcode := strings.TrimSpace(c.Query("codigo_barras"))
	if barcode == "" {
		c.JSON(http.StatusUnprocessableEntity, models.APIMessage{Detail: "codigo_barras é obrigatório"})
		return
	}

	created, err := h.store.RecordScan(c.Request.Context(), barcode)
	if err != nil {
		h.logger.Error("failed recording scan", zap.String("barcode", barcode), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record scan"})
		return
	}

	if created {
		c.JSON(http.StatusOK, models.APIMessage{Message: "Nova leitura registrada"})
		return
	}
	c.JSON(http.StatusOK, models.APIMessage{Message: "Leitura atualizada"})
}

// Report serves GET /relatorio.
func (h *APIHandler) Report(c *gin.Context) {
	rows, err := h.store.Report(c.Request.Context())
	if err != nil {
		h.logger.Error("failed building report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build report"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// StartStream serves POST /start-stream. Only the requested state is kept;
// no camera is opened.
func (h *APIHandler) StartStream(c *gin.Context) {
	var req models.StreamRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, models.APIMessage{Detail: "url é obrigatória"})
		return
	}

	h.mu.Lock()
	h.streaming = true
	h.streamURL = req.URL
	h.mu.Unlock()

	h.logger.Info("stream start requested", zap.String("url", req.URL))
	c.JSON(http.StatusOK, models.APIMessage{Message: "Stream iniciado com sucesso", URL: req.URL})
}

// StopStream serves POST /stop-stream.
func (h *APIHandler) StopStream(c *gin.Context) {
	h.mu.Lock()
	h.streaming = false
	h.streamURL = ""
	h.mu.Unlock()

	h.logger.Info("stream stop requested")
	c.JSON(http.StatusOK, models.APIMessage{Message: "Stream parado"})
}

// Streaming reports the last requested stream state.
func (h *APIHandler) Streaming() (bool, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.streaming, h.streamURL
}
