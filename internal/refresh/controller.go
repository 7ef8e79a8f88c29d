// Package refresh drives periodic snapshot fetches and delivers the results
// in request order.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

var (
	// ErrInvalidInterval is returned for a zero or negative refresh interval.
	ErrInvalidInterval = errors.New("refresh interval must be positive")
	// ErrAlreadyStarted is returned by Start on a running controller.
	ErrAlreadyStarted = errors.New("refresh controller already started")
)

// FetchError wraps a failed fetch with its sequence id.
type FetchError struct {
	Seq uint64
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch #%d failed: %v", e.Seq, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Source produces one snapshot per call.
type Source interface {
	Fetch(ctx context.Context) (snapshot.Value, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (snapshot.Value, error)

func (f SourceFunc) Fetch(ctx context.Context) (snapshot.Value, error) { return f(ctx) }

// Sink receives fetch outcomes. Calls are serialized.
type Sink interface {
	Apply(v snapshot.Value)
	Fail(err error)
}

// SinkFuncs adapts a pair of functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	OnApply func(v snapshot.Value)
	OnFail  func(err error)
}

func (s SinkFuncs) Apply(v snapshot.Value) {
	if s.OnApply != nil {
		s.OnApply(v)
	}
}

func (s SinkFuncs) Fail(err error) {
	if s.OnFail != nil {
		s.OnFail(err)
	}
}

// Stats counts fetch outcomes since the controller was created.
type Stats struct {
	Started     uint64
	Applied     uint64
	Failed      uint64
	Dropped     uint64
	LastApplied time.Time
}

type ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) C() <-chan time.Time { return t.Ticker.C }

var (
	newTicker = func(d time.Duration) ticker { return realTicker{Ticker: time.NewTicker(d)} }
	timeNow   = time.Now
)

// Controller owns the refresh timer. Fetches overlap freely; a response
// older than the last applied one is dropped.
type Controller struct {
	source  Source
	sink    Sink
	log     logr.Logger
	trigger chan struct{}
	seq     atomic.Uint64
	fetches sync.WaitGroup

	mu       sync.Mutex
	interval time.Duration
	ticker   ticker
	cancel   context.CancelFunc
	loopDone chan struct{}

	// deliverMu serializes sink calls and guards the fields below. It is
	// separate from mu so SetInterval and Trigger never wait on a sink.
	deliverMu sync.Mutex
	stopped   bool
	applied   uint64
	stats     Stats
}

// New returns a stopped controller.
func New(src Source, sink Sink, log logr.Logger) *Controller {
	return &Controller{
		source:  src,
		sink:    sink,
		log:     log.WithName("refresh"),
		trigger: make(chan struct{}, 1),
	}
}

// Start fetches once immediately, then once per interval until ctx is done
// or Stop is called.
func (c *Controller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return ErrAlreadyStarted
	}

	c.deliverMu.Lock()
	c.stopped = false
	c.deliverMu.Unlock()
	select {
	case <-c.trigger:
	default:
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.interval = interval
	c.ticker = newTicker(interval)
	c.loopDone = make(chan struct{})

	c.log.V(1).Info("refresh started", "interval", interval.String())
	c.spawn(ctx)
	go c.loop(ctx, c.ticker, c.loopDone)
	return nil
}

// SetInterval changes the period of a running or future refresh loop. The
// ticker restarts from now; no extra fetch is issued.
func (c *Controller) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = interval
	if c.ticker != nil {
		c.ticker.Reset(interval)
	}
	c.log.V(1).Info("refresh interval changed", "interval", interval.String())
	return nil
}

// Interval returns the current refresh period.
func (c *Controller) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Running reports whether Start has been called without a matching Stop.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Trigger requests an immediate fetch. Requests made while one is pending
// are coalesced. It is a no-op on a stopped controller.
func (c *Controller) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Stop halts the loop and cancels in-flight fetches. Once Stop returns the
// sink receives nothing more. Stop must not be called from the sink.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel, done, t := c.cancel, c.loopDone, c.ticker
	c.cancel, c.loopDone, c.ticker = nil, nil, nil
	c.mu.Unlock()

	// Waits for a delivery that is already running.
	c.deliverMu.Lock()
	c.stopped = true
	c.deliverMu.Unlock()

	cancel()
	t.Stop()
	<-done
	c.fetches.Wait()

	// Drop a trigger that arrived after the loop exited.
	select {
	case <-c.trigger:
	default:
	}
	c.log.V(1).Info("refresh stopped")
}

// Stats returns a copy of the outcome counters.
func (c *Controller) Stats() Stats {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	return c.stats
}

func (c *Controller) loop(ctx context.Context, t ticker, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			c.spawn(ctx)
		case <-c.trigger:
			c.spawn(ctx)
		}
	}
}

// spawn is only called from Start and the loop goroutine, so fetches.Add
// never races with the Wait in Stop.
func (c *Controller) spawn(ctx context.Context) {
	seq := c.seq.Add(1)
	c.fetches.Add(1)
	c.deliverMu.Lock()
	c.stats.Started++
	c.deliverMu.Unlock()
	go func() {
		defer c.fetches.Done()
		v, err := c.source.Fetch(ctx)
		c.deliver(ctx, seq, v, err)
	}()
}

func (c *Controller) deliver(ctx context.Context, seq uint64, v snapshot.Value, err error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	if c.stopped || ctx.Err() != nil {
		return
	}
	if seq < c.applied {
		c.stats.Dropped++
		c.log.V(1).Info("dropping stale response", "seq", seq, "applied", c.applied, "failed", err != nil)
		return
	}
	if err != nil {
		c.stats.Failed++
		c.log.V(1).Info("fetch failed", "seq", seq, "error", err.Error())
		c.sink.Fail(&FetchError{Seq: seq, Err: err})
		return
	}
	c.applied = seq
	c.stats.Applied++
	c.stats.LastApplied = timeNow()
	c.sink.Apply(v)
}
