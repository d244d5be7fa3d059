package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrNotRunning is returned by Refresh when the poller has been stopped.
var ErrNotRunning = errors.New("poller is not running")

// FetchFunc loads one snapshot of a remote collection.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ApplyFunc replaces local state with a freshly fetched snapshot.
type ApplyFunc[T any] func(T)

// Poller refetches a collection on a fixed cadence and hands each result to
// an ApplyFunc. Every fetch carries a sequence number; a result is applied
// only when it is newer than the last applied one, so a slow response can
// never overwrite fresher state.
//
// ApplyFunc runs without the poller lock held and may call Stop or Refresh.
// Results are applied one at a time in sequence order.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	apply    ApplyFunc[T]
	logger   *zap.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	detach   func() bool
	issued   uint64
	applied  uint64
	inflight map[uint64]context.CancelFunc
	manual   sync.WaitGroup

	pending    T
	hasPending bool
	delivering bool
}

// NewPoller creates a poller. It does nothing until Start is called.
func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], apply ApplyFunc[T], logger *zap.Logger) *Poller[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
		logger:   logger,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// Start fetches immediately and then every interval until Stop or until ctx
// is cancelled. Calling Start on a running poller is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.cron = cron.New(cron.WithChain(cron.Recover(cronLogger{p.logger})))
	p.cron.Schedule(fixedDelay(p.interval), cron.FuncJob(func() {
		_ = p.tick(context.Background())
	}))
	p.running = true

	p.logger.Info("starting poller", zap.String("poller", p.name), zap.Duration("interval", p.interval))

	p.manual.Add(1)
	go func() {
		defer p.manual.Done()
		_ = p.tick(context.Background())
	}()

	p.cron.Start()

	// Tearing down the parent context tears down the poller.
	p.detach = context.AfterFunc(ctx, p.Stop)
}

// Stop halts the schedule, cancels in-flight fetches and waits for running
// ticks to return. After Stop returns no further fetch is issued and no
// result is applied. When a result is being applied, as when Stop is called
// from the ApplyFunc itself, Stop does not wait for that apply to finish.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.detach()
	for seq, cancel := range p.inflight {
		cancel()
		delete(p.inflight, seq)
	}
	p.cancel()
	p.clearPending()
	c := p.cron
	applying := p.delivering
	p.mu.Unlock()

	stopped := c.Stop()
	if applying {
		// the running job may be our own caller
		p.logger.Info("poller stopped during apply", zap.String("poller", p.name))
		return
	}
	<-stopped.Done()
	p.manual.Wait()

	p.logger.Info("poller stopped", zap.String("poller", p.name))
}

// Running reports whether the poller is scheduled.
func (p *Poller[T]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh performs one fetch outside the schedule and waits for it. The
// result goes through the same sequencing as scheduled ticks. Called from
// the ApplyFunc, the result is applied after the current apply returns.
func (p *Poller[T]) Refresh(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.manual.Add(1)
	p.mu.Unlock()

	defer p.manual.Done()
	return p.tick(ctx)
}

func (p *Poller[T]) tick(caller context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	p.issued++
	seq := p.issued
	ctx, cancel := context.WithCancel(p.ctx)
	p.inflight[seq] = cancel
	p.mu.Unlock()

	stopAfter := context.AfterFunc(caller, cancel)
	defer func() {
		stopAfter()
		cancel()
		p.mu.Lock()
		delete(p.inflight, seq)
		p.mu.Unlock()
	}()

	result, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			p.logger.Debug("poll cancelled", zap.String("poller", p.name), zap.Uint64("seq", seq), zap.Error(err))
			return err
		}
		p.logger.Warn("poll failed", zap.String("poller", p.name), zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrNotRunning
	}
	if seq <= p.applied {
		p.mu.Unlock()
		p.logger.Debug("discarding stale poll result", zap.String("poller", p.name), zap.Uint64("seq", seq))
		return nil
	}

	p.applied = seq
	for older, cancelOlder := range p.inflight {
		if older < seq {
			cancelOlder()
		}
	}
	p.pending, p.hasPending = result, true
	if p.delivering {
		// the active deliverer picks it up
		p.mu.Unlock()
		return nil
	}
	p.delivering = true
	p.mu.Unlock()

	p.deliver()
	return nil
}

// deliver applies queued results until none is left or the poller stops.
func (p *Poller[T]) deliver() {
	for {
		p.mu.Lock()
		if !p.running || !p.hasPending {
			p.clearPending()
			p.delivering = false
			p.mu.Unlock()
			return
		}
		result := p.pending
		p.clearPending()
		p.mu.Unlock()

		p.apply(result)
	}
}

// clearPending must be called with p.mu held.
func (p *Poller[T]) clearPending() {
	var zero T
	p.pending, p.hasPending = zero, false
}

// fixedDelay fires every d without the whole-second rounding of
// cron.Every.
type fixedDelay time.Duration

func (d fixedDelay) Next(t time.Time) time.Time {
	return t.Add(time.Duration(d))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
