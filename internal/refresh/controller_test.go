package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/kvwatch/internal/snapshot"
)

const waitFor = 2 * time.Second

type fakeTicker struct {
	ch chan time.Time

	mu      sync.Mutex
	resets  []time.Duration
	stopped bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }

func (f *fakeTicker) Reset(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, d)
}

func (f *fakeTicker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeTicker) Resets() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.resets...)
}

func useFakeTicker(t *testing.T) *fakeTicker {
	t.Helper()
	ft := &fakeTicker{ch: make(chan time.Time)}
	orig := newTicker
	newTicker = func(time.Duration) ticker { return ft }
	t.Cleanup(func() { newTicker = orig })
	return ft
}

type recordingSink struct {
	mu      sync.Mutex
	applied []snapshot.Value
	failed  []error
}

func (s *recordingSink) Apply(v snapshot.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = append(s.applied, v)
}

func (s *recordingSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied), len(s.failed)
}

func (s *recordingSink) values() []snapshot.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]snapshot.Value(nil), s.applied...)
}

func life(n int64) snapshot.Value {
	return snapshot.MappingValue(snapshot.Field{Key: "Life", Value: snapshot.IntValue(n)})
}

func counting() (Source, *atomic.Int64) {
	var calls atomic.Int64
	return SourceFunc(func(context.Context) (snapshot.Value, error) {
		return life(calls.Add(1)), nil
	}), &calls
}

func TestStartRejectsInvalidInterval(t *testing.T) {
	src, _ := counting()
	c := New(src, &recordingSink{}, logr.Discard())
	for _, d := range []time.Duration{0, -time.Second} {
		require.ErrorIs(t, c.Start(context.Background(), d), ErrInvalidInterval)
	}
	assert.False(t, c.Running())
}

func TestStartFetchesImmediatelyAndOnTick(t *testing.T) {
	ft := useFakeTicker(t)
	src, _ := counting()
	sink := &recordingSink{}
	c := New(src, sink, logr.Discard())

	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()
	require.ErrorIs(t, c.Start(context.Background(), time.Second), ErrAlreadyStarted)

	require.Eventually(t, func() bool { n, _ := sink.counts(); return n == 1 }, waitFor, time.Millisecond)
	ft.ch <- time.Now()
	require.Eventually(t, func() bool { n, _ := sink.counts(); return n == 2 }, waitFor, time.Millisecond)

	got := sink.values()
	assert.True(t, life(1).Equal(got[0]))
	assert.True(t, life(2).Equal(got[1]))
	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Applied)
	assert.False(t, stats.LastApplied.IsZero())
}

func TestSetInterval(t *testing.T) {
	ft := useFakeTicker(t)
	src, calls := counting()
	c := New(src, &recordingSink{}, logr.Discard())

	require.ErrorIs(t, c.SetInterval(0), ErrInvalidInterval)
	require.ErrorIs(t, c.SetInterval(-5*time.Second), ErrInvalidInterval)

	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	require.NoError(t, c.SetInterval(3*time.Second))
	assert.Equal(t, 3*time.Second, c.Interval())
	assert.Equal(t, []time.Duration{3 * time.Second}, ft.Resets())
	assert.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestStaleResponseIsDropped(t *testing.T) {
	useFakeTicker(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls atomic.Int64
	src := SourceFunc(func(context.Context) (snapshot.Value, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return life(1), nil
		}
		return life(2), nil
	})
	sink := &recordingSink{}
	c := New(src, sink, logr.Discard())
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	<-entered
	c.Trigger()
	require.Eventually(t, func() bool { n, _ := sink.counts(); return n == 1 }, waitFor, time.Millisecond)

	close(release)
	require.Eventually(t, func() bool { return c.Stats().Dropped == 1 }, waitFor, time.Millisecond)
	got := sink.values()
	require.Len(t, got, 1)
	assert.True(t, life(2).Equal(got[0]))
}

func TestFetchFailureRetriesOnNextTick(t *testing.T) {
	ft := useFakeTicker(t)
	boom := errors.New("connection refused")
	var calls atomic.Int64
	src := SourceFunc(func(context.Context) (snapshot.Value, error) {
		if calls.Add(1) == 1 {
			return snapshot.Value{}, boom
		}
		return life(7), nil
	})
	sink := &recordingSink{}
	c := New(src, sink, logr.Discard())
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()

	require.Eventually(t, func() bool { _, n := sink.counts(); return n == 1 }, waitFor, time.Millisecond)
	sink.mu.Lock()
	err := sink.failed[0]
	sink.mu.Unlock()
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, uint64(1), fe.Seq)
	assert.ErrorIs(t, err, boom)

	ft.ch <- time.Now()
	require.Eventually(t, func() bool { n, _ := sink.counts(); return n == 1 }, waitFor, time.Millisecond)
	assert.Equal(t, uint64(1), c.Stats().Failed)
}

func TestStopIsSynchronous(t *testing.T) {
	ft := useFakeTicker(t)
	entered := make(chan struct{}, 1)
	src := SourceFunc(func(ctx context.Context) (snapshot.Value, error) {
		entered <- struct{}{}
		<-ctx.Done()
		return snapshot.Value{}, ctx.Err()
	})
	sink := &recordingSink{}
	c := New(src, sink, logr.Discard())
	require.NoError(t, c.Start(context.Background(), time.Second))
	<-entered

	c.Stop()
	assert.False(t, c.Running())
	ft.mu.Lock()
	assert.True(t, ft.stopped)
	ft.mu.Unlock()
	applied, failed := sink.counts()
	assert.Zero(t, applied)
	assert.Zero(t, failed, "cancelled fetches are not reported")

	// Idempotent, and the controller can be restarted.
	c.Stop()
	require.NoError(t, c.Start(context.Background(), time.Second))
	<-entered
	c.Stop()
}

func TestTriggerWhileStoppedIsDiscarded(t *testing.T) {
	useFakeTicker(t)
	src, calls := counting()
	c := New(src, &recordingSink{}, logr.Discard())
	c.Trigger()
	require.NoError(t, c.Start(context.Background(), time.Second))
	defer c.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSinkFuncs(t *testing.T) {
	var applied snapshot.Value
	var failed error
	s := SinkFuncs{
		OnApply: func(v snapshot.Value) { applied = v },
		OnFail:  func(err error) { failed = err },
	}
	s.Apply(life(3))
	s.Fail(errors.New("x"))
	assert.True(t, life(3).Equal(applied))
	assert.EqualError(t, failed, "x")
	assert.NotPanics(t, func() { SinkFuncs{}.Apply(life(1)); SinkFuncs{}.Fail(nil) })
}

func TestWatchTriggersFetch(t *testing.T) {
	useFakeTicker(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "debug.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"Life":1}`), 0o600))

	src, calls := counting()
	c := New(src, &recordingSink{}, logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx, time.Hour))
	defer c.Stop()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	require.NoError(t, c.Watch(ctx, file))
	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(file, []byte(`{"Life":2}`), 0o600))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, waitFor, 5*time.Millisecond)
}

func TestWatchMissingDirectory(t *testing.T) {
	src, _ := counting()
	c := New(src, &recordingSink{}, logr.Discard())
	err := c.Watch(context.Background(), filepath.Join(t.TempDir(), "nope", "file.json"))
	require.Error(t, err)
}
