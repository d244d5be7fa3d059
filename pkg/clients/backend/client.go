package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/mamadbah2/leitor/internal/config"
	"github.com/mamadbah2/leitor/internal/domain/models"
)

const (
	productsPath    = "/produtos"
	scansPath       = "/leituras"
	reportPath      = "/relatorio"
	startStreamPath = "/start-stream"
	stopStreamPath  = "/stop-stream"
)

// ErrConflict matches StatusError values carrying HTTP 409.
var ErrConflict = errors.New("conflict")

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.Code, http.StatusText(e.Code))
	}
	if e.Detail == "" {
		return fmt.Sprintf("backend returned HTTP %s", status)
	}
	return fmt.Sprintf("backend returned HTTP %s: %s", status, e.Detail)
}

// Is lets errors.Is(err, ErrConflict) match 409 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrConflict && e.Code == http.StatusConflict
}

// StatusText returns the reason phrase, e.g. "Not Found".
func (e *StatusError) StatusText() string {
	if _, text, ok := strings.Cut(e.Status, " "); ok {
		return text
	}
	return http.StatusText(e.Code)
}

// TransportError is returned when no HTTP response could be obtained.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client exposes the backend REST operations used by the console.
type Client interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, req models.NewProduct) (*models.Product, error)
	ListScans(ctx context.Context) ([]models.ScanEvent, error)
	RecordScan(ctx context.Context, barcode string) (*models.APIMessage, error)
	Report(ctx context.Context) ([]byte, error)
	StartStream(ctx context.Context, url string) (*models.APIMessage, error)
	StopStream(ctx context.Context) (*models.APIMessage, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a backend client using the injected configuration values.
func NewClient(cfg config.BackendConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.RequestTimeout)

	return &APIClient{httpClient: restyClient}
}

// ListProducts fetches GET /produtos.
func (c *APIClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if _, err := c.do(ctx, "list products", c.httpClient.R().SetResult(&products), http.MethodGet, productsPath); err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct posts a new catalog entry. A duplicate barcode yields an
// error matching ErrConflict.
func (c *APIClient) CreateProduct(ctx context.Context, req models.NewProduct) (*models.Product, error) {
	result := new(models.Product)
	if _, err := c.do(ctx, "create product", c.httpClient.R().SetBody(req.Normalize()).SetResult(result), http.MethodPost, productsPath); err != nil {
		return nil, err
	}
	return result, nil
}

// ListScans fetches GET /leituras.
func (c *APIClient) ListScans(ctx context.Context) ([]models.ScanEvent, error) {
	var scans []models.ScanEvent
	if _, err := c.do(ctx, "list scans", c.httpClient.R().SetResult(&scans), http.MethodGet, scansPath); err != nil {
		return nil, err
	}
	return scans, nil
}

// RecordScan registers one read of barcode, the way the decoder does.
func (c *APIClient) RecordScan(ctx context.Context, barcode string) (*models.APIMessage, error) {
	result := new(models.APIMessage)
	req := c.httpClient.R().SetQueryParam("codigo_barras", barcode).SetResult(result)
	if _, err := c.do(ctx, "record scan", req, http.MethodPost, scansPath); err != nil {
		return nil, err
	}
	return result, nil
}

// Report returns the raw GET /relatorio body. Shape validation is left to
// the caller so malformed rows can be filtered individually.
func (c *APIClient) Report(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, "load report", c.httpClient.R(), http.MethodGet, reportPath)
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// StartStream asks the backend to start reading the camera at url.
func (c *APIClient) StartStream(ctx context.Context, url string) (*models.APIMessage, error) {
	result := new(models.APIMessage)
	req := c.httpClient.R().SetBody(models.StreamRequest{URL: url}).SetResult(result)
	if _, err := c.do(ctx, "start stream", req, http.MethodPost, startStreamPath); err != nil {
		return nil, err
	}
	return result, nil
}

// StopStream asks the backend to stop reading the camera.
func (c *APIClient) StopStream(ctx context.Context) (*models.APIMessage, error) {
	result := new(models.APIMessage)
	if _, err := c.do(ctx, "stop stream", c.httpClient.R().SetResult(result), http.MethodPost, stopStreamPath); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *APIClient) do(ctx context.Context, op string, req *resty.Request, method, path string) (*resty.Response, error) {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%s: %w", op, &StatusError{
			Code:   resp.StatusCode(),
			Status: resp.Status(),
			Detail: errorDetail(resp.Body()),
		})
	}

	return resp, nil
}

// errorDetail extracts a human readable reason from an error body without
// assuming its shape; validation errors carry a list under "detail".
func errorDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, path := range []string{"detail", "error", "message"} {
		value := gjson.GetBytes(body, path)
		switch {
		case value.Type == gjson.String:
			return value.String()
		case value.IsArray():
			if msg := value.Get("0.msg"); msg.Exists() {
				return msg.String()
			}
			return value.Raw
		}
	}
	return ""
}
