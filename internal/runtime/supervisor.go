// Package runtime supervises the long-lived goroutines of the relay process:
// the HTTP listener and periodic health checks.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"brandgen-go/internal/monitoring"
	log "github.com/sirupsen/logrus"
)

// TaskStatus 后台任务状态
type TaskStatus string

const (
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusStopped  TaskStatus = "stopped"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusCanceled TaskStatus = "canceled"
)

// TaskFunc runs until ctx is cancelled or its work is done.
type TaskFunc func(ctx context.Context) error

// TaskInfo is a snapshot of one supervised task.
type TaskInfo struct {
	Name      string
	StartTime time.Time
	Status    TaskStatus
	Err       error
}

type task struct {
	info   TaskInfo
	cancel context.CancelFunc
}

// Supervisor starts named tasks under a shared context and waits for them on
// shutdown.
type Supervisor struct {
	mu     sync.RWMutex
	tasks  map[string]*task
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSupervisor(parent context.Context) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{tasks: make(map[string]*task), ctx: ctx, cancel: cancel}
}

// Go starts fn as a named task. Names are unique for the supervisor's lifetime.
func (s *Supervisor) Go(name string, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return fmt.Errorf("supervisor stopped, cannot start %s", name)
	}
	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %s already exists", name)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{info: TaskInfo{Name: name, StartTime: time.Now(), Status: TaskStatusRunning}, cancel: cancel}
	s.tasks[name] = t

	s.wg.Add(1)
	monitoring.BackgroundTasksRunning.Inc()
	go func() {
		defer s.wg.Done()
		defer monitoring.BackgroundTasksRunning.Dec()
		defer cancel()

		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			log.WithField("task", name).Info("Task started")
			err = fn(ctx)
		}()
		s.finish(t, ctx, err)
	}()
	return nil
}

func (s *Supervisor) finish(t *task, ctx context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := log.WithField("task", t.info.Name)
	switch {
	case err == nil:
		t.info.Status = TaskStatusStopped
		entry.Info("Task stopped")
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		t.info.Status = TaskStatusCanceled
		entry.Debug("Task canceled")
	default:
		t.info.Status = TaskStatusFailed
		t.info.Err = err
		entry.WithError(err).Error("Task failed")
	}
}

// Every runs fn immediately and then at each interval until cancelled. A
// failing run is logged and does not stop the task.
func (s *Supervisor) Every(name string, interval time.Duration, fn TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("task %s: interval must be positive", name)
	}
	return s.Go(name, func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				log.WithField("task", name).WithError(err).Warn("Periodic task execution failed")
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

// Stop cancels one task.
func (s *Supervisor) Stop(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("task %s not found", name)
	}
	t.cancel()
	return nil
}

// Shutdown cancels every task and waits until they return or ctx expires.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

// Task returns a snapshot of the named task.
func (s *Supervisor) Task(name string) (TaskInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[name]
	if !ok {
		return TaskInfo{}, false
	}
	return t.info, true
}

// Tasks lists snapshots of all tasks.
func (s *Supervisor) Tasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.info)
	}
	return out
}
