package util

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elijahnyp/house_hub/state"
)

// GatewayForwarder pushes device state changes to the hardware gateway
// that drives the physical device, using a small worker pool.
type GatewayForwarder struct {
	Enabled         bool  `mapstructure:"enabled"`
	Workers         int64 `mapstructure:"workers"`
	Timeout_seconds int64 `mapstructure:"timeout_seconds"`

	queue  chan GatewayJob
	client *http.Client
	wg     sync.WaitGroup
	once   sync.Once
}

type GatewayJob struct {
	Url    string `json:"-"`
	Room   string `json:"room"`
	Device string `json:"device"`
	State  string `json:"state"`
}

// Endpoint returns the gateway action url, e.g. http://gw:5050/door/open.
// The gateway spells "closed" as "close".
func (job GatewayJob) Endpoint() string {
	action := job.State
	if action == state.StateClosed {
		action = "close"
	}
	return strings.TrimSuffix(job.Url, "/") + "/" + action
}

func (gf *GatewayForwarder) MakeGatewayForwarder() {
	if err := Config.UnmarshalKey("gateway", gf); err != nil {
		Logger.Error().Msgf("Error loading gateway config: %v", err)
	}
	if gf.Workers < 1 {
		gf.Workers = 1
	}
	if gf.Timeout_seconds < 1 {
		gf.Timeout_seconds = 5
	}
	gf.client = &http.Client{Timeout: time.Duration(gf.Timeout_seconds) * time.Second}
	gf.queue = make(chan GatewayJob, gf.Workers*4)
	for i := 0; i < int(gf.Workers); i++ {
		gf.wg.Add(1)
		go gf.gateway_worker()
	}
}

// Forward queues a job without blocking. Jobs are dropped when the
// forwarder is disabled or the queue is full.
func (gf *GatewayForwarder) Forward(job GatewayJob) bool {
	if !gf.Enabled || gf.queue == nil || job.Url == "" {
		return false
	}
	select {
	case gf.queue <- job:
		return true
	default:
		Logger.Warn().Msgf("gateway queue full, dropping %s/%s -> %s", job.Room, job.Device, job.State)
		return false
	}
}

// Close stops accepting jobs and waits for the workers to drain the queue.
func (gf *GatewayForwarder) Close() {
	gf.once.Do(func() {
		if gf.queue != nil {
			close(gf.queue)
		}
	})
	gf.wg.Wait()
}

func (gf *GatewayForwarder) gateway_worker() {
	defer gf.wg.Done()
	for job := range gf.queue {
		if err := gf.process_job(context.Background(), job); err != nil {
			Logger.Warn().Msgf("Unable to forward %s/%s to gateway: %v", job.Room, job.Device, err)
		}
	}
}

func (gf *GatewayForwarder) process_job(ctx context.Context, job GatewayJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := gf.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", job.Endpoint(), err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			Logger.Error().Msgf("Error closing response body: %v", closeErr)
		}
	}()
	if resp.StatusCode > 299 || resp.StatusCode < 200 {
		return fmt.Errorf("non-2xx code received from gateway: %d", resp.StatusCode)
	}

	var reply struct {
		Ok *bool `json:"ok"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read gateway reply: %w", err)
	}
	if len(data) > 0 && json.Unmarshal(data, &reply) == nil && reply.Ok != nil && !*reply.Ok {
		return fmt.Errorf("gateway rejected %s", job.Endpoint())
	}
	Logger.Debug().Msgf("forwarded %s/%s -> %s", job.Room, job.Device, job.State)
	return nil
}
