package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook releases a resource while the server stops. A failing hook is logged
// and the remaining hooks still run.
type ShutdownHook func(ctx context.Context) error

// ShutdownConfig controls GracefulShutdown
type ShutdownConfig struct {
	// Timeout covers the hooks and draining in-flight requests together
	Timeout time.Duration
	Signals []os.Signal
	Logger  *zap.Logger
}

func defaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// DefaultShutdownConfig waits 30s and stops on SIGINT or SIGTERM
func DefaultShutdownConfig() *ShutdownConfig {
	return &ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: defaultSignals(),
		Logger:  zap.NewNop(),
	}
}

// GracefulShutdown serves until a signal arrives or the start context ends, then runs
// its hooks and drains the server
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	signals []os.Signal
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []ShutdownHook

	once sync.Once
	done chan struct{}
	err  error
}

// NewGracefulShutdown wraps server. A nil config means DefaultShutdownConfig.
func NewGracefulShutdown(server *Server, config *ShutdownConfig) *GracefulShutdown {
	if config == nil {
		config = DefaultShutdownConfig()
	}

	gs := &GracefulShutdown{
		server:  server,
		timeout: config.Timeout,
		signals: config.Signals,
		logger:  config.Logger,
		done:    make(chan struct{}),
	}
	if len(gs.signals) == 0 {
		gs.signals = defaultSignals()
	}
	if gs.logger == nil {
		gs.logger = zap.NewNop()
	}
	return gs
}

// RegisterHook adds a hook. Hooks run in registration order before the server drains.
func (gs *GracefulShutdown) RegisterHook(hook ShutdownHook) {
	gs.mu.Lock()
	gs.hooks = append(gs.hooks, hook)
	gs.mu.Unlock()
}

// Start serves until a shutdown signal, ctx cancellation or a serve failure
func (gs *GracefulShutdown) Start(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		gs.logger.Info("starting server", zap.String("addr", gs.server.Addr()))
		err := gs.server.Serve()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve: %w", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, gs.signals...)
	defer signal.Stop(sigs)

	select {
	case err := <-serveErr:
		return err
	case sig := <-sigs:
		gs.logger.Info("shutdown signal received", zap.Stringer("signal", sig))
	case <-ctx.Done():
	}
	return gs.Shutdown()
}

// Shutdown runs the hooks then drains the server. Later calls wait for the first and
// return its result.
func (gs *GracefulShutdown) Shutdown() error {
	gs.once.Do(func() {
		defer close(gs.done)
		gs.logger.Info("initiating graceful shutdown", zap.Duration("timeout", gs.timeout))

		ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
		defer cancel()

		gs.runHooks(ctx)

		if err := gs.server.Shutdown(ctx); err != nil {
			gs.err = fmt.Errorf("drain server: %w", err)
			gs.logger.Error("server shutdown failed", zap.Error(err))
			return
		}
		gs.logger.Info("server shutdown completed")
	})
	return gs.Wait()
}

func (gs *GracefulShutdown) runHooks(ctx context.Context) {
	gs.mu.Lock()
	hooks := append([]ShutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	for i, hook := range hooks {
		if err := hook(ctx); err != nil {
			gs.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
		}
	}
}

// Wait blocks until Shutdown has finished
func (gs *GracefulShutdown) Wait() error {
	<-gs.done
	return gs.err
}
