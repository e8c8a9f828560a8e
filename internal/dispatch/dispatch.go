// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package dispatch runs best-effort background tasks (impression counting,
// event publishing) outside the request that triggered them.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Recorder observes task outcomes. result is "ok", "error" or "dropped".
type Recorder interface {
	TaskDone(name, result string)
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher is a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	queue   chan task
	timeout time.Duration
	rec     Recorder

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Config sizes a Dispatcher.
type Config struct {
	Workers int
	Queue   int
	Timeout time.Duration // per task; defaults to 10s
}

// New starts a Dispatcher. rec may be nil.
func New(cfg Config, rec Recorder) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Queue < 1 {
		cfg.Queue = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan task, cfg.Queue),
		timeout: cfg.Timeout,
		rec:     rec,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Go enqueues fn without blocking. It returns false when the task was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.record(name, "dropped")
		slog.Warn("dispatcher closed, task dropped", "task", name)
		return false
	}
	select {
	case d.queue <- task{name: name, fn: fn}:
		return true
	default:
		d.record(name, "dropped")
		slog.Warn("dispatch queue full, task dropped", "task", name)
		return false
	}
}

// Close stops intake and waits for queued tasks to finish or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("dispatcher drain timed out")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if rvr := recover(); rvr != nil {
			d.record(t.name, "error")
			slog.Error("background task panicked", "task", t.name, "panic", rvr)
		}
	}()

	if err := t.fn(ctx); err != nil {
		d.record(t.name, "error")
		slog.Warn("background task failed", "task", t.name, "error", err)
		return
	}
	d.record(t.name, "ok")
}

func (d *Dispatcher) record(name, result string) {
	if d.rec != nil {
		d.rec.TaskDone(name, result)
	}
}
