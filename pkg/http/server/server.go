package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

type Config struct {
	Port    int
	Timeout time.Duration
}

// Server wraps net/http with lifecycle notification.
type Server struct {
	server *http.Server
	notify chan error
}

func New(ctx context.Context, handler http.Handler, cfg Config) *Server {
	s := &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Port),
			Handler: handler,
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      cfg.Timeout + 10*time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
		notify: make(chan error, 1),
	}
	go func() {
		s.notify <- s.server.ListenAndServe()
		close(s.notify)
	}()
	return s
}

func (s *Server) Notify() <-chan error {
	return s.notify
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
