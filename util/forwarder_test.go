package util

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestGatewayForwarder_MakeGatewayForwarder(t *testing.T) {
	useTestConfig(t)
	Config.Set("gateway", map[string]interface{}{
		"enabled":         true,
		"workers":         int64(3),
		"timeout_seconds": int64(2),
	})

	gf := &GatewayForwarder{}
	gf.MakeGatewayForwarder()
	defer gf.Close()

	if !gf.Enabled {
		t.Error("GatewayForwarder should be enabled")
	}
	if gf.Workers != 3 {
		t.Errorf("Workers = %d, expected 3", gf.Workers)
	}
	if gf.client.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, expected 2s", gf.client.Timeout)
	}
	if cap(gf.queue) != 12 {
		t.Errorf("queue capacity = %d, expected 12", cap(gf.queue))
	}
}

func TestGatewayJob_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		job      GatewayJob
		expected string
	}{
		{"Door open", GatewayJob{Url: "http://gw:5050/door", State: "open"}, "http://gw:5050/door/open"},
		{"Door closed uses close", GatewayJob{Url: "http://gw:5050/door/", State: "closed"}, "http://gw:5050/door/close"},
		{"Fan on", GatewayJob{Url: "http://gw:5050/fan", State: "on"}, "http://gw:5050/fan/on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.Endpoint(); got != tt.expected {
				t.Errorf("Endpoint() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestProcess_job_Success(t *testing.T) {
	var gotPath string
	var gotJob GatewayJob
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotJob) //nolint:errcheck // test helper
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`)) //nolint:errcheck // test helper
	}))
	defer mockServer.Close()

	gf := &GatewayForwarder{}
	job := GatewayJob{Url: mockServer.URL + "/door", Room: "garage", Device: "door", State: "closed"}

	if err := gf.process_job(context.Background(), job); err != nil {
		t.Fatalf("process_job() returned error: %v", err)
	}
	if gotPath != "/door/close" {
		t.Errorf("gateway path = %s, expected /door/close", gotPath)
	}
	if gotJob.Room != "garage" || gotJob.Device != "door" || gotJob.State != "closed" {
		t.Errorf("gateway body = %+v", gotJob)
	}
}

func TestProcess_job_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		reply   string
		wantErr bool
	}{
		{"Server error", http.StatusInternalServerError, "Server Error", true},
		{"Gateway says not ok", http.StatusOK, `{"ok": false}`, true},
		{"Empty 204", http.StatusNoContent, "", false},
		{"Non-JSON 200", http.StatusOK, "fine", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.reply)) //nolint:errcheck // test helper
			}))
			defer mockServer.Close()

			gf := &GatewayForwarder{}
			err := gf.process_job(context.Background(), GatewayJob{Url: mockServer.URL + "/fan", State: "on"})
			if (err != nil) != tt.wantErr {
				t.Errorf("process_job() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProcess_job_NetworkError(t *testing.T) {
	gf := &GatewayForwarder{client: &http.Client{Timeout: time.Second}}
	if err := gf.process_job(context.Background(), GatewayJob{Url: "http://127.0.0.1:1/door", State: "open"}); err == nil {
		t.Error("process_job() should fail when the gateway is unreachable")
	}
}

func TestGatewayForwarder_Forward(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		w.Write([]byte(`{"ok": true}`)) //nolint:errcheck // test helper
	}))
	defer mockServer.Close()

	useTestConfig(t)
	Config.Set("gateway", map[string]interface{}{"enabled": true, "workers": int64(1)})

	gf := &GatewayForwarder{}
	gf.MakeGatewayForwarder()

	if !gf.Forward(GatewayJob{Url: mockServer.URL + "/door", Room: "garage", Device: "door", State: "open"}) {
		t.Error("Forward() should queue the job")
	}
	if gf.Forward(GatewayJob{Room: "garage", Device: "fan", State: "on"}) {
		t.Error("Forward() should skip jobs without a gateway url")
	}

	gf.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "/door/open" {
		t.Errorf("gateway calls = %v, expected [/door/open]", paths)
	}
}

func TestGatewayForwarder_Disabled(t *testing.T) {
	gf := &GatewayForwarder{}
	if gf.Forward(GatewayJob{Url: "http://gw/door", State: "open"}) {
		t.Error("disabled forwarder should not queue jobs")
	}
	gf.Close()
}
