package persistentlogin

import (
	"context"
	"sync"
	"time"

	"github.com/tech-arch1tect/persistentlogin/services/logging"
	"go.uber.org/zap"
)

// Worker sweeps expired tokens on a fixed interval, off the request path.
type Worker struct {
	manager  *Manager
	interval time.Duration
	logger   *logging.Service

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(manager *Manager, interval time.Duration, logger *logging.Service) *Worker {
	return &Worker{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the sweep loop. Calling Start on a running worker, or with
// a non-positive interval, does nothing.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil || w.interval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, w.done)

	w.logger.Info("started persistent login cleanup worker",
		zap.Duration("interval", w.interval))
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.manager.CleanupExpired(ctx)
		}
	}
}

func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		w.logger.Info("stopped persistent login cleanup worker")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
