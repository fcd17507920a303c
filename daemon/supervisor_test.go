package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bulletd/bulletd/push"
	"github.com/bulletd/bulletd/types"
)

type fakeProber struct {
	mu    sync.Mutex
	calls int
}

func (p *fakeProber) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *fakeProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// fakeStream either fails immediately with runErr or blocks until Close.
type fakeStream struct {
	runErr    error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream(runErr error) *fakeStream {
	return &fakeStream{runErr: runErr, closed: make(chan struct{})}
}

func (s *fakeStream) RunForever() error {
	if s.runErr != nil {
		return s.runErr
	}
	<-s.closed
	return nil
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeStream) SessionID() string { return "test-session" }

type fakeSink struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (f *fakeSink) Notify(title, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.titles = append(f.titles, title)
	return nil
}

func (f *fakeSink) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.titles...)
}

func passthroughClassify(types.Event) (*types.Candidate, error) { return nil, nil }

func TestSupervisorRecoversFromStreamError(t *testing.T) {
	prober := &fakeProber{}
	sink := &fakeSink{}
	status := NewStatus()

	connected := make(chan struct{})
	var connects int
	connect := func(func(types.Event) error) (Stream, error) {
		connects++
		if connects == 1 {
			return newFakeStream(errors.New("socket reset")), nil
		}
		close(connected)
		return newFakeStream(nil), nil
	}

	s := &Supervisor{
		Prober:   prober,
		Connect:  connect,
		Sink:     sink,
		Classify: passthroughClassify,
		Status:   status,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor never reconnected after stream error")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down after cancel")
	}

	// One probe per connection attempt: the failed stream forced a
	// fresh probe-then-reconnect cycle.
	assert.Equal(t, 2, prober.count())
	assert.Equal(t, 2, connects)
	assert.Equal(t, uint64(1), status.Snapshot().Reconnects)
	assert.Equal(t, []string{"bulletd started", "bulletd connection lost", "bulletd started"}, sink.seen())
}

func TestSupervisorShutsDownCleanlyOnCancel(t *testing.T) {
	prober := &fakeProber{}
	sink := &fakeSink{}
	status := NewStatus()

	streaming := make(chan struct{})
	connect := func(func(types.Event) error) (Stream, error) {
		close(streaming)
		return newFakeStream(nil), nil
	}

	s := &Supervisor{
		Prober:   prober,
		Connect:  connect,
		Sink:     sink,
		Classify: passthroughClassify,
		Status:   status,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-streaming:
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor never connected")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not shut down after cancel")
	}

	// No connection-lost notification on a clean shutdown.
	assert.Equal(t, []string{"bulletd started"}, sink.seen())
	assert.Equal(t, uint64(0), status.Snapshot().Reconnects)
	assert.Equal(t, StateStopped, status.Snapshot().State)
}

func TestHandleEventNotifiesCandidates(t *testing.T) {
	sink := &fakeSink{}
	status := NewStatus()
	s := &Supervisor{
		Sink:   sink,
		Status: status,
		Classify: func(types.Event) (*types.Candidate, error) {
			return &types.Candidate{Title: "[Signal] Alice", Body: "hi"}, nil
		},
	}

	require.NoError(t, s.handleEvent(types.Event{Type: "push"}))
	assert.Equal(t, []string{"[Signal] Alice"}, sink.seen())

	snap := status.Snapshot()
	assert.Equal(t, uint64(1), snap.Events)
	assert.Equal(t, uint64(1), snap.Notifications)
}

func TestHandleEventSkipsUninterestingEvents(t *testing.T) {
	sink := &fakeSink{}
	s := &Supervisor{
		Sink:     sink,
		Status:   NewStatus(),
		Classify: passthroughClassify,
	}

	require.NoError(t, s.handleEvent(types.Event{Type: "device"}))
	assert.Empty(t, sink.seen())
}

func TestHandleEventPropagatesClassifyErrors(t *testing.T) {
	classifyErr := errors.New("failed to decrypt push")
	s := &Supervisor{
		Sink:   &fakeSink{},
		Status: NewStatus(),
		Classify: func(types.Event) (*types.Candidate, error) {
			return nil, classifyErr
		},
	}

	assert.ErrorIs(t, s.handleEvent(types.Event{Type: "push"}), classifyErr)
}

func TestHandleEventDeduplicatesMirrors(t *testing.T) {
	sink := &fakeSink{}
	s := &Supervisor{
		Sink:   sink,
		Status: NewStatus(),
		Dedup:  push.NewDeduper(time.Minute),
		Classify: func(types.Event) (*types.Candidate, error) {
			return &types.Candidate{Title: "[Signal] Alice", Body: "hi", Key: "org.signal/42"}, nil
		},
	}

	require.NoError(t, s.handleEvent(types.Event{Type: "push"}))
	require.NoError(t, s.handleEvent(types.Event{Type: "push"}))

	assert.Equal(t, []string{"[Signal] Alice"}, sink.seen())
	assert.Equal(t, uint64(1), s.Status.Snapshot().Notifications)
}

func TestHandleEventPropagatesSinkErrors(t *testing.T) {
	sinkErr := errors.New("notification service unavailable")
	s := &Supervisor{
		Sink:   &fakeSink{err: sinkErr},
		Status: NewStatus(),
		Classify: func(types.Event) (*types.Candidate, error) {
			return &types.Candidate{Title: "t", Body: "b"}, nil
		},
	}

	assert.ErrorIs(t, s.handleEvent(types.Event{Type: "push"}), sinkErr)
}
