package index

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Task is a handle on a crawl running in the background.
type Task struct {
	ID        string
	StartedAt time.Time

	done    chan struct{}
	running atomic.Bool
	report  Report
	err     error
}

// Start runs Crawl on a new goroutine and returns immediately.
func (c *Crawler) Start() *Task {
	t := &Task{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	t.running.Store(true)
	c.logger.Info("crawl: started", slog.String("task", t.ID))

	go func() {
		defer close(t.done)
		t.report, t.err = c.Crawl()
		t.running.Store(false)
	}()
	return t
}

// Done is closed when the crawl has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Running reports whether the crawl is still in progress.
func (t *Task) Running() bool {
	return t.running.Load()
}

// Wait blocks until the crawl finishes and returns its outcome.
func (t *Task) Wait() (Report, error) {
	<-t.done
	return t.report, t.err
}
