package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

var ErrAlreadyRunning = errors.New("already running")

// MonitorServer is the restartable HTTP server for the API and dashboard.
// Addr overrides the details_port setting when set.
type MonitorServer struct {
	Addr string

	router *mux.Router
	srvMu  sync.Mutex // protects srv and done
	srv    *http.Server
	done   chan struct{}
}

func NewMonitorServer() *MonitorServer {
	return &MonitorServer{router: mux.NewRouter()}
}

func (s *MonitorServer) addr() string {
	if s.Addr != "" {
		return s.Addr
	}
	return fmt.Sprintf(":%d", Config.GetInt("details_port"))
}

func (s *MonitorServer) Router() *mux.Router {
	return s.router
}

func (s *MonitorServer) Start() error {
	s.srvMu.Lock()
	if s.srv != nil {
		s.srvMu.Unlock()
		return ErrAlreadyRunning
	}
	srv := &http.Server{Addr: s.addr(), Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	done := make(chan struct{})
	s.srv = srv
	s.done = done
	s.srvMu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Warn().Msgf("Problem loading monitor server: %v", err)
		}
		Logger.Debug().Msg("monitor server shutdown")
		s.srvMu.Lock()
		if s.srv == srv {
			s.srv = nil
		}
		s.srvMu.Unlock()
		close(done)
	}()
	return nil
}

func (s *MonitorServer) Running() bool {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	return s.srv != nil
}

// AddHandler routes path to handler, optionally restricted to methods.
func (s *MonitorServer) AddHandler(path string, handler func(http.ResponseWriter, *http.Request), methods ...string) *mux.Route {
	route := s.router.HandleFunc(path, handler)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
	return route
}

func (s *MonitorServer) AddRawHandler(path string, handler http.Handler) *mux.Route {
	return s.router.Handle(path, handler)
}

// Shutdown stops the server and waits for it to exit. It is a no-op when
// the server is not running.
func (s *MonitorServer) Shutdown(ctx context.Context) error {
	s.srvMu.Lock()
	srv, done := s.srv, s.done
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

func (s *MonitorServer) Restart() {
	Logger.Debug().Msg("restarting monitor server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.Running() {
		if err := s.Shutdown(ctx); err != nil {
			Logger.Error().Msgf("Error shutting down monitor server: %v", err)
		}
	} else {
		Logger.Debug().Msg("http not running - good for startup")
	}
	if err := s.Start(); err != nil {
		Logger.Error().Msgf("Error starting monitor server: %v", err)
	}
}
