package poller

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Task is a handler run on a fixed period until its context is cancelled
type Task struct {
	Name    string
	Every   time.Duration
	Handler func(ctx context.Context)
}

// Start runs the task in its own goroutine. Cancelling ctx stops new runs; a
// run already in progress is left to finish with its requests intact.
func (t Task) Start(ctx context.Context, wg *sync.WaitGroup) {
	runCtx := context.WithoutCancel(ctx)

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(t.Every)
		defer ticker.Stop()

		log.WithField("task", t.Name).Debugf("task scheduled every %s", t.Every)
		for {
			select {
			case <-ticker.C:
				t.Handler(runCtx)
			case <-ctx.Done():
				log.WithField("task", t.Name).Debug("task stopped")
				return
			}
		}
	}()
}
