package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubService struct {
	started chan struct{}
	stop    chan struct{}
	stopped bool
	err     error
}

func newStubService() *stubService {
	return &stubService{
		started: make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

func (s *stubService) Start() error {
	close(s.started)
	if s.err != nil {
		return s.err
	}
	<-s.stop
	return nil
}

func (s *stubService) Stop() {
	if !s.stopped {
		s.stopped = true
		close(s.stop)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	svc := newStubService()
	lc.AddService("stub", svc)

	closed := false
	lc.AddCloser("resource", func() { closed = true })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	<-svc.started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down")
	}

	assert.True(t, svc.stopped)
	assert.True(t, closed)
}

func TestRunReturnsServiceError(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	svc := newStubService()
	svc.err = errors.New("bind failed")
	lc.AddService("listener", svc)

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service listener")
	assert.Contains(t, err.Error(), "bind failed")
}

func TestShutdownOrderReversed(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))

	var order []string
	a := &FuncService{
		StartFn: func() error { return nil },
		StopFn:  func() { order = append(order, "a") },
	}
	b := &FuncService{
		StartFn: func() error { return nil },
		StopFn:  func() { order = append(order, "b") },
	}
	lc.AddService("a", a)
	lc.AddService("b", b)
	lc.AddCloser("c", func() { order = append(order, "c") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, lc.Run(ctx))

	assert.Equal(t, []string{"b", "a", "c"}, order)
}
