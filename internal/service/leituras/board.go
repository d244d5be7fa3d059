package leituras

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/leitor/internal/domain/models"
	"github.com/mamadbah2/leitor/internal/scheduler"
)

const dateLayout = "02/01/2006"

// Source loads the scan collection.
type Source interface {
	ListScans(ctx context.Context) ([]models.ScanEvent, error)
}

// State is a copy of the board as last rendered.
type State struct {
	Scans     []models.ScanEvent
	UpdatedAt time.Time
	Loaded    bool
}

// Board keeps the live scan table in sync with the backend.
type Board struct {
	poller *scheduler.Poller[[]models.ScanEvent]
	logger *zap.Logger
	now    func() time.Time

	mu       sync.RWMutex
	state    State
	onChange func(State)
}

// NewBoard wires a board polling source every interval.
func NewBoard(source Source, interval time.Duration, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Board{logger: logger, now: time.Now}
	b.poller = scheduler.NewPoller[[]models.ScanEvent]("leituras", interval, source.ListScans, b.replace, logger.Named("poller"))
	return b
}

// OnChange registers a callback invoked after every applied snapshot.
func (b *Board) OnChange(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

// Mount starts polling. Fetch failures are logged and retried on the next tick.
func (b *Board) Mount(ctx context.Context) {
	b.poller.Start(ctx)
}

// Unmount stops polling; no fetch happens after it returns.
func (b *Board) Unmount() {
	b.poller.Stop()
}

// Refresh forces one fetch.
func (b *Board) Refresh(ctx context.Context) error {
	return b.poller.Refresh(ctx)
}

// State returns a copy of the current table.
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyState(b.state)
}

func (b *Board) replace(scans []models.ScanEvent) {
	if scans == nil {
		scans = []models.ScanEvent{}
	}

	b.mu.Lock()
	b.state = State{Scans: scans, UpdatedAt: b.now(), Loaded: true}
	snapshot := copyState(b.state)
	onChange := b.onChange
	b.mu.Unlock()

	b.logger.Debug("scans refreshed", zap.Int("count", len(scans)))
	if onChange != nil {
		onChange(snapshot)
	}
}

func copyState(s State) State {
	s.Scans = append([]models.ScanEvent(nil), s.Scans...)
	return s
}

// Render writes the scan table.
func Render(w io.Writer, state State) error {
	if _, err := fmt.Fprintf(w, "Leituras (%d)\n", len(state.Scans)); err != nil {
		return err
	}
	if len(state.Scans) == 0 {
		_, err := fmt.Fprintln(w, "Nenhuma leitura encontrada")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Código de Barras\tDescrição\tQuantidade\tData/Hora")
	for _, scan := range state.Scans {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", scan.Barcode, scan.Description, scan.Quantity, scan.ReadAt.Format(dateLayout))
	}
	return tw.Flush()
}
