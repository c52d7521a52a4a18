package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// freeAddr reserves a local port and releases it for the server under test.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unable to reserve port: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close() //nolint:errcheck // test helper
	return addr
}

func waitForServer(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url) //nolint:gosec // test url
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("server at %s never came up: %v", url, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestNewMonitorServer(t *testing.T) {
	server := NewMonitorServer()

	if server == nil {
		t.Fatal("NewMonitorServer should return non-nil server")
	}
	if server.Router() == nil {
		t.Error("NewMonitorServer should initialize the router")
	}
	if server.Running() {
		t.Error("new server should not be running")
	}
}

func TestMonitorServer_AddHandler(t *testing.T) {
	server := NewMonitorServer()

	server.AddHandler("/test/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("test response")) //nolint:errcheck // test helper
	}, http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/test/42", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != "test response" {
		t.Errorf("Expected 'test response', got '%s'", body)
	}

	// wrong method
	req = httptest.NewRequest(http.MethodPost, "/test/42", nil)
	w = httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestMonitorServer_AddRawHandler(t *testing.T) {
	server := NewMonitorServer()

	server.AddRawHandler("/raw", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("raw handler response")) //nolint:errcheck // test helper
	}))

	req := httptest.NewRequest(http.MethodGet, "/raw", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if body := w.Body.String(); body != "raw handler response" {
		t.Errorf("Expected 'raw handler response', got '%s'", body)
	}
}

func TestMonitorServer_StartTwice(t *testing.T) {
	server := NewMonitorServer()
	server.Addr = freeAddr(t)

	if err := server.Start(); err != nil {
		t.Fatalf("Start() should not return error, got: %v", err)
	}
	defer server.Shutdown(context.Background()) //nolint:errcheck // test cleanup

	if err := server.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() error = %v, expected ErrAlreadyRunning", err)
	}
}

func TestMonitorServer_Integration(t *testing.T) {
	server := NewMonitorServer()
	server.Addr = freeAddr(t)
	server.AddHandler("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("healthy")) //nolint:errcheck // test helper
	})

	if err := server.Start(); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	url := fmt.Sprintf("http://%s/health", server.Addr)

	resp := waitForServer(t, url)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK || string(body) != "healthy" {
		t.Errorf("got %d %q, expected 200 healthy", resp.StatusCode, body)
	}

	server.Restart()
	if !server.Running() {
		t.Error("server should be running after Restart()")
	}

	resp = waitForServer(t, url)
	_ = resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 after restart, got %d", resp.StatusCode)
	}

	if err := server.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() returned error: %v", err)
	}
	if server.Running() {
		t.Error("server should not be running after Shutdown()")
	}
}

func TestMonitorServer_RestartWhenStopped(t *testing.T) {
	server := NewMonitorServer()
	server.Addr = freeAddr(t)
	server.AddHandler("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("healthy")) //nolint:errcheck // test helper
	})
	defer server.Shutdown(context.Background()) //nolint:errcheck // test cleanup

	server.Restart()
	if !server.Running() {
		t.Fatal("Restart() on a stopped server should start it")
	}
	resp := waitForServer(t, fmt.Sprintf("http://%s/health", server.Addr))
	_ = resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestMonitorServer_ConcurrentStart(t *testing.T) {
	server := NewMonitorServer()
	server.Addr = freeAddr(t)
	defer server.Shutdown(context.Background()) //nolint:errcheck // test cleanup

	results := make(chan error, 3)
	for i := 0; i < 3; i++ {
		go func() {
			results <- server.Start()
		}()
	}

	var successCount, errorCount int
	for i := 0; i < 3; i++ {
		if err := <-results; err != nil {
			errorCount++
		} else {
			successCount++
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly 1 successful start, got %d", successCount)
	}
	if errorCount != 2 {
		t.Errorf("Expected exactly 2 'already running' errors, got %d", errorCount)
	}
}

func TestMonitorServer_ShutdownWhenStopped(t *testing.T) {
	server := NewMonitorServer()
	if err := server.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() of a stopped server returned error: %v", err)
	}
}
