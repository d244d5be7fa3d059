package stream

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

var (
	// ErrURLLocked is returned when the URL is edited while the stream is active.
	ErrURLLocked = errors.New("stream url cannot change while active")
	// ErrEmptyURL is returned when starting without a URL.
	ErrEmptyURL = errors.New("stream url is empty")
	// ErrBusy is returned while a start request is in flight.
	ErrBusy = errors.New("stream request in progress")
)

// Status is the client-side view of the backend stream.
type Status string

const (
	Inactive Status = "Inativo"
	Active   Status = "Ativo"
)

const (
	alertStarted     = "Stream iniciado com sucesso!"
	alertStartFailed = "Erro ao iniciar stream"
	alertUnreachable = "Erro ao conectar com o backend"
	alertStopped     = "Stream parado"
	alertStopFailed  = "Erro ao parar stream"
	alertURLRequired = "Informe a URL do stream da câmera IP"
)

// Switch is the backend surface the control drives.
type Switch interface {
	StartStream(ctx context.Context, url string) (*models.APIMessage, error)
	StopStream(ctx context.Context) (*models.APIMessage, error)
}

// Options tune the control.
type Options struct {
	DefaultURL string
	// FireAndForgetStop flips to Inactive even when the stop request fails.
	FireAndForgetStop bool
	// Running starts the control Active, for a stream started elsewhere.
	Running bool
}

// State is a copy of the control.
type State struct {
	URL     string
	Status  Status
	Loading bool
	Alert   string
}

// Control starts and stops the camera stream.
type Control struct {
	sw     Switch
	opts   Options
	logger *zap.Logger

	mu    sync.Mutex
	state State
}

// NewControl creates a control with the default URL, Inactive unless
// opts.Running is set.
func NewControl(sw Switch, opts Options, logger *zap.Logger) *Control {
	if logger == nil {
		logger = zap.NewNop()
	}
	status := Inactive
	if opts.Running {
		status = Active
	}
	return &Control{
		sw:     sw,
		opts:   opts,
		logger: logger,
		state:  State{URL: opts.DefaultURL, Status: status},
	}
}

// State returns a copy of the control.
func (c *Control) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetURL edits the camera URL. It is locked while the stream is active.
func (c *Control) SetURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == Active {
		return ErrURLLocked
	}
	c.state.URL = url
	return nil
}

// Start asks the backend to read the configured URL. On failure the control
// stays Inactive and the alert explains why.
func (c *Control) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state.Status == Active {
		c.mu.Unlock()
		return nil
	}
	url := strings.TrimSpace(c.state.URL)
	if url == "" {
		c.state.Alert = alertURLRequired
		c.mu.Unlock()
		return ErrEmptyURL
	}
	c.state.Loading = true
	c.mu.Unlock()

	_, err := c.sw.StartStream(ctx, url)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	var statusErr *backend.StatusError
	switch {
	case err == nil:
		c.state.Status = Active
		c.state.Alert = alertStarted
		c.logger.Info("stream started", zap.String("url", url))
	case errors.As(err, &statusErr):
		c.state.Alert = alertStartFailed
		c.logger.Warn("stream start rejected", zap.String("url", url), zap.Error(err))
	default:
		c.state.Alert = alertUnreachable
		c.logger.Warn("stream start failed", zap.String("url", url), zap.Error(err))
	}
	return err
}

// Stop asks the backend to stop reading. The control only turns Inactive
// once the backend confirms, unless FireAndForgetStop is set.
func (c *Control) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state.Loading = true
	c.mu.Unlock()

	_, err := c.sw.StopStream(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false

	if err == nil || c.opts.FireAndForgetStop {
		c.state.Status = Inactive
		c.state.Alert = alertStopped
		if err != nil {
			c.logger.Warn("stream stop not confirmed", zap.Error(err))
			return nil
		}
		c.logger.Info("stream stopped")
		return nil
	}

	c.state.Alert = alertStopFailed
	c.logger.Warn("stream stop failed", zap.Error(err))
	return err
}
