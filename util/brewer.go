package util

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Brewer simulates in-progress device actions such as a coffee machine
// brewing. Progress climbs by step every interval until it reaches 100,
// stays there for hold, then drops back to 0.
type Brewer struct {
	mu        sync.Mutex
	progress  map[string]int
	jobs      map[string]string
	listeners []func(key, jobID string, progress int)

	step     int
	interval time.Duration
	hold     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBrewer(step int, interval, hold time.Duration) *Brewer {
	if step <= 0 {
		step = 5
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Brewer{
		progress: make(map[string]int),
		jobs:     make(map[string]string),
		step:     step,
		interval: interval,
		hold:     hold,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func NewBrewerFromConfig() *Brewer {
	return NewBrewer(
		Config.GetInt("brew.step"),
		time.Duration(Config.GetInt64("brew.interval_ms"))*time.Millisecond,
		time.Duration(Config.GetInt64("brew.hold_ms"))*time.Millisecond,
	)
}

func BrewKey(roomID, deviceID string) string {
	return roomID + "/" + deviceID
}

func (b *Brewer) OnProgress(listener func(key, jobID string, progress int)) {
	b.mu.Lock()
	b.listeners = append(b.listeners, listener)
	b.mu.Unlock()
}

// Start begins a brew for key. If one is already running its job id is
// returned with started false.
func (b *Brewer) Start(key string) (jobID string, started bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.jobs[key]; ok {
		return id, false
	}
	if b.ctx.Err() != nil {
		return "", false
	}
	jobID = uuid.NewString()
	b.jobs[key] = jobID
	b.wg.Add(1)
	go b.run(key, jobID)
	Logger.Debug().Msgf("brew %s started for %s", jobID, key)
	return jobID, true
}

// Progress returns the current progress for key, 0 when idle.
func (b *Brewer) Progress(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress[key]
}

func (b *Brewer) Brewing(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.jobs[key]
	return ok
}

// Stop cancels every running brew and waits for them to reset.
func (b *Brewer) Stop() {
	b.cancel()
	b.wg.Wait()
}

func (b *Brewer) set(key, jobID string, progress int) {
	b.mu.Lock()
	if progress > 0 {
		b.progress[key] = progress
	} else {
		delete(b.progress, key)
		delete(b.jobs, key)
	}
	listeners := b.listeners
	b.mu.Unlock()
	for _, listener := range listeners {
		listener(key, jobID, progress)
	}
}

func (b *Brewer) run(key, jobID string) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	progress := 0
	for progress < 100 {
		select {
		case <-b.ctx.Done():
			b.set(key, jobID, 0)
			return
		case <-ticker.C:
			progress += b.step
			if progress > 100 {
				progress = 100
			}
			b.set(key, jobID, progress)
		}
	}

	select {
	case <-b.ctx.Done():
	case <-time.After(b.hold):
	}
	b.set(key, jobID, 0)
	Logger.Debug().Msgf("brew %s finished for %s", jobID, key)
}
