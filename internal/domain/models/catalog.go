package models

import (
	"strings"
	"time"
)

// Product is a registered item of the barcode catalog.
type Product struct {
	ID           int       `json:"id" bson:"id"`
	Barcode      string    `json:"codigo_barras" bson:"codigo_barras"`
	Description  string    `json:"descricao" bson:"descricao"`
	RegisteredAt Timestamp `json:"data_cadastro" bson:"data_cadastro"`
}

// NewProduct is the payload accepted by POST /produtos.
type NewProduct struct {
	Barcode     string `json:"codigo_barras" binding:"required"`
	Description string `json:"descricao" binding:"required"`
}

// Normalize trims surrounding whitespace from both fields.
func (p NewProduct) Normalize() NewProduct {
	return NewProduct{
		Barcode:     strings.TrimSpace(p.Barcode),
		Description: strings.TrimSpace(p.Description),
	}
}

// Complete reports whether both fields carry a value after trimming.
func (p NewProduct) Complete() bool {
	n := p.Normalize()
	return n.Barcode != "" && n.Description != ""
}

// ScanEvent (leitura) is a barcode read aggregated per barcode by the backend.
type ScanEvent struct {
	ID          int       `json:"id" bson:"id"`
	Barcode     string    `json:"codigo_barras" bson:"codigo_barras"`
	Description string    `json:"descricao" bson:"descricao"`
	Quantity    int       `json:"quantidade" bson:"quantidade"`
	ReadAt      Timestamp `json:"data_hora" bson:"data_hora"`
}

// UnidentifiedDescription labels scans whose barcode is not in the catalog.
const UnidentifiedDescription = "Não identificado"

// ReportRow is the per-description scan total served by GET /relatorio.
type ReportRow struct {
	Description string `json:"descricao"`
	Quantity    int    `json:"quantidade"`
}

// StreamRequest is the payload accepted by POST /start-stream.
type StreamRequest struct {
	URL string `json:"url" binding:"required"`
}

// APIMessage mirrors the acknowledgement and error bodies of the backend.
type APIMessage struct {
	Message string `json:"message,omitempty"`
	URL     string `json:"url,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// Now returns the current time truncated to microseconds, matching the
// precision the backend serializes.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
