package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is used when NewJanitor receives a non-positive interval.
const DefaultSweepInterval = time.Minute

// Janitor runs SweepExpired periodically, in addition to the opportunistic
// sweep done by HandleUtterance.
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewJanitor creates a janitor for manager.
func NewJanitor(manager *Manager, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		manager:  manager,
		interval: interval,
		logger:   logger.With(slog.String("component", "memory.janitor")),
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.done = make(chan struct{})
	j.running = true
	go j.run(loopCtx, j.done)
}

// Stop cancels the loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	cancel, done := j.cancel, j.done
	j.mu.Unlock()

	cancel()
	<-done
}

// IsRunning reports whether the loop is active.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *Janitor) run(ctx context.Context, done chan struct{}) {
	defer func() {
		j.mu.Lock()
		j.running = false
		j.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Debug("janitor stopping")
			return
		case <-ticker.C:
			removed := j.manager.SweepExpired(j.manager.now())
			j.logger.Debug("sweep finished",
				slog.Int("removed", removed),
				slog.Int("sessions", j.manager.Sessions()),
			)
		}
	}
}
