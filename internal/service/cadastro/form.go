package cadastro

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/pkg/clients/backend"
)

// ErrValidation indicates a required field was left blank.
var ErrValidation = errors.New("missing required fields")

// ErrBusy indicates a submission is already in flight.
var ErrBusy = errors.New("submission in progress")

// MessageKind enumerates the feedback shown under the form.
type MessageKind string

const (
	MessageNone         MessageKind = ""
	MessageValidation   MessageKind = "validation"
	MessageSuccess      MessageKind = "success"
	MessageDuplicate    MessageKind = "duplicate"
	MessageServerError  MessageKind = "server_error"
	MessageConnectivity MessageKind = "connectivity"
)

var messageTexts = map[MessageKind]string{
	MessageValidation:   "Todos os campos são obrigatórios",
	MessageSuccess:      "Produto cadastrado com sucesso!",
	MessageDuplicate:    "Código de barras já cadastrado",
	MessageServerError:  "Erro ao cadastrar produto",
	MessageConnectivity: "Erro de conexão com o servidor",
}

// Message is the single feedback line of the form.
type Message struct {
	Kind MessageKind
	Text string
}

// IsError reports whether the message should be shown as a failure.
func (m Message) IsError() bool {
	return m.Kind != MessageNone && m.Kind != MessageSuccess
}

func messageFor(kind MessageKind) Message {
	return Message{Kind: kind, Text: messageTexts[kind]}
}

// Creator registers products in the backend.
type Creator interface {
	CreateProduct(ctx context.Context, req models.NewProduct) (*models.Product, error)
}

// Refresher reloads a collection that depends on the catalog.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// FormState is a copy of the form fields and feedback.
type FormState struct {
	Barcode     string
	Description string
	Loading     bool
	Message     Message
}

// Form is the product registration screen.
type Form struct {
	creator   Creator
	dependent Refresher
	logger    *zap.Logger

	mu    sync.Mutex
	state FormState
}

// NewForm wires a registration form. dependent is refreshed once after each
// successful submission and may be nil.
func NewForm(creator Creator, dependent Refresher, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{creator: creator, dependent: dependent, logger: logger}
}

// SetBarcode updates the barcode field.
func (f *Form) SetBarcode(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Barcode = value
}

// SetDescription updates the description field.
func (f *Form) SetDescription(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Description = value
}

// State returns a copy of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit validates the fields and posts them. The returned error mirrors the
// message placed in the form state; callers only need it for exit codes.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state.Loading {
		f.mu.Unlock()
		return ErrBusy
	}

	req := models.NewProduct{Barcode: f.state.Barcode, Description: f.state.Description}.Normalize()
	if !req.Complete() {
		f.state.Message = messageFor(MessageValidation)
		f.mu.Unlock()
		return ErrValidation
	}

	f.state.Loading = true
	f.state.Message = Message{}
	f.mu.Unlock()

	product, err := f.creator.CreateProduct(ctx, req)

	f.mu.Lock()
	f.state.Loading = false
	kind := classify(err)
	f.state.Message = messageFor(kind)
	if kind == MessageSuccess {
		f.state.Barcode = ""
		f.state.Description = ""
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn("product registration failed", zap.String("barcode", req.Barcode), zap.String("outcome", string(kind)), zap.Error(err))
		return err
	}

	fields := []zap.Field{zap.String("barcode", req.Barcode)}
	if product != nil {
		fields = append(fields, zap.Int("id", product.ID))
	}
	f.logger.Info("product registered", fields...)

	if f.dependent != nil {
		if err := f.dependent.Refresh(ctx); err != nil {
			f.logger.Warn("dependent refresh failed", zap.Error(err))
		}
	}
	return nil
}

func classify(err error) MessageKind {
	var statusErr *backend.StatusError
	switch {
	case err == nil:
		return MessageSuccess
	case errors.Is(err, backend.ErrConflict):
		return MessageDuplicate
	case errors.As(err, &statusErr):
		return MessageServerError
	default:
		return MessageConnectivity
	}
}
