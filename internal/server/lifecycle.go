// Package server manages roll-server startup and shutdown: it runs the
// blocking services (the Telnet acceptor), releases resources (the macro
// VM) in reverse order, and translates SIGINT/SIGTERM into a graceful
// stop.
package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the service
// stops or fails; Stop asks it to stop.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

func (f *FuncService) Start() error { return f.StartFn() }
func (f *FuncService) Stop()        { f.StopFn() }

type namedService struct {
	name    string
	service Service
}

type namedCloser struct {
	name  string
	close func()
}

// Lifecycle runs registered services until a signal, a service failure,
// or context cancellation, then stops services and closers in reverse
// registration order.
type Lifecycle struct {
	logger   *zap.Logger
	services []namedService
	closers  []namedCloser
}

// NewLifecycle creates a Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// AddService registers a blocking service to run.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) AddService(name string, svc Service) {
	l.services = append(l.services, namedService{name: name, service: svc})
}

// AddCloser registers a resource released during shutdown, after all
// services have stopped.
func (l *Lifecycle) AddCloser(name string, close func()) {
	l.closers = append(l.closers, namedCloser{name: name, close: close})
}

// Run starts every registered service and blocks until SIGINT, SIGTERM,
// a service failure, or ctx cancellation. The first service error is
// returned after shutdown completes.
//
// Postcondition: All services are stopped and all closers released when
// Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(l.services))
	for _, ns := range l.services {
		ns := ns
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			if err := ns.service.Start(); err != nil {
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.String("reason", "signal or cancellation"))
	case runErr = <-errCh:
		l.logger.Error("service failed, shutting down", zap.Error(runErr))
	}

	l.shutdown()
	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown() {
	for i := len(l.services) - 1; i >= 0; i-- {
		ns := l.services[i]
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
	}
	for i := len(l.closers) - 1; i >= 0; i-- {
		nc := l.closers[i]
		l.logger.Info("closing resource", zap.String("resource", nc.name))
		nc.close()
	}
}
