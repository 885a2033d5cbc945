// Package server exposes a semantic layer over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Config controls the HTTP listener
type Config struct {
	Address string
	Handler http.Handler

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	// WriteTimeout bounds POST /sync, which may introspect a live database
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// DefaultConfig returns the listener settings used by `semlayer serve`
func DefaultConfig(handler http.Handler) *Config {
	return &Config{
		Address:           ":8080",
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      time.Minute,
		IdleTimeout:       time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}

// Server is an http.Server that binds its address on first use
type Server struct {
	address  string
	http     *http.Server
	listener net.Listener
}

// New validates config and builds a Server. Nothing is bound until Listen or Serve.
func New(config *Config) (*Server, error) {
	switch {
	case config == nil:
		return nil, errors.New("server: nil config")
	case config.Handler == nil:
		return nil, errors.New("server: nil handler")
	}

	return &Server{
		address: config.Address,
		http: &http.Server{
			Handler:           config.Handler,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
			MaxHeaderBytes:    config.MaxHeaderBytes,
		},
	}, nil
}

// Listen binds the address; calling it again is a no-op
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.address, err)
	}
	s.listener = ln
	return nil
}

// Serve blocks until the server is shut down. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.http.Serve(s.listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.http.Close()
}

// Addr is the bound address once listening (useful with port 0), else the configured one
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}
