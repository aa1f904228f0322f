package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// periodic runs a task on a fixed interval until stopped. The jobs in this
// package embed it and supply the task.
type periodic struct {
	name       string
	interval   time.Duration
	startDelay time.Duration
	timeout    time.Duration
	task       func(ctx context.Context) error
	logger     *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func newPeriodic(name string, interval time.Duration, task func(ctx context.Context) error, logger *slog.Logger) *periodic {
	if logger == nil {
		logger = slog.Default()
	}
	return &periodic{
		name:     name,
		interval: interval,
		timeout:  2 * time.Minute,
		task:     task,
		logger:   logger,
	}
}

// Start begins the job loop. Calling Start on a running job does nothing.
func (p *periodic) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	p.logger.Info("job started", slog.String("job", p.name), slog.Duration("interval", p.interval))
}

// Stop ends the loop and waits for an in-flight run to finish
func (p *periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("job stopped", slog.String("job", p.name))
}

// IsRunning returns whether the job loop is active
func (p *periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *periodic) run() {
	defer p.wg.Done()

	if p.startDelay > 0 {
		select {
		case <-time.After(p.startDelay):
		case <-p.stopCh:
			return
		}
	}
	p.tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *periodic) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.task(ctx); err != nil {
		p.logger.Error("job run failed", slog.String("job", p.name), slog.String("error", err.Error()))
	}
}
