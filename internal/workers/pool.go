// Package workers provides a bounded pool of goroutines that drive run
// pipelines. Each submitted task runs to completion on one worker; a panic
// inside a task is recovered so one bad run never takes down the pool or
// its siblings.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Task is a unit of work to be processed.
type Task interface {
	Execute() error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func() error

func (f TaskFunc) Execute() error { return f() }

// Pool manages a fixed set of worker goroutines.
type Pool struct {
	logger *zap.Logger
	config PoolConfig

	taskQueue chan Task
	wg        sync.WaitGroup

	running        atomic.Bool
	ctx            context.Context
	cancel         context.CancelFunc
	tasksSubmitted atomic.Int64
	tasksCompleted atomic.Int64
	tasksFailed    atomic.Int64
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	Name       string
	NumWorkers int
	QueueSize  int
}

// DefaultPoolConfig returns sensible defaults for run pipelines, which are
// CPU-light and short-lived.
func DefaultPoolConfig(name string) PoolConfig {
	return PoolConfig{
		Name:       name,
		NumWorkers: 4,
		QueueSize:  64,
	}
}

// NewPool creates a new pool; call Start before submitting.
func NewPool(logger *zap.Logger, config PoolConfig) *Pool {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	return &Pool{
		logger:    logger,
		config:    config,
		taskQueue: make(chan Task, config.QueueSize),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.NumWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("Worker pool started",
		zap.String("pool", p.config.Name),
		zap.Int("workers", p.config.NumWorkers),
	)
}

// Submit enqueues a task. It fails when the pool is stopped or the queue
// is full; callers surface that as a synchronous error.
func (p *Pool) Submit(task Task) error {
	if !p.running.Load() {
		return fmt.Errorf("pool %s is not running", p.config.Name)
	}
	select {
	case p.taskQueue <- task:
		p.tasksSubmitted.Add(1)
		return nil
	default:
		return fmt.Errorf("pool %s queue is full", p.config.Name)
	}
}

// Stop drains in-flight work and shuts the workers down.
func (p *Pool) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.taskQueue)
	p.wg.Wait()
	p.cancel()

	p.logger.Info("Worker pool stopped",
		zap.String("pool", p.config.Name),
		zap.Int64("completed", p.tasksCompleted.Load()),
		zap.Int64("failed", p.tasksFailed.Load()),
	)
}

// Stats returns submitted/completed/failed counts.
func (p *Pool) Stats() (submitted, completed, failed int64) {
	return p.tasksSubmitted.Load(), p.tasksCompleted.Load(), p.tasksFailed.Load()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.taskQueue {
		p.execute(id, task)
	}
}

func (p *Pool) execute(id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.tasksFailed.Add(1)
			p.logger.Error("Worker recovered from panic",
				zap.String("pool", p.config.Name),
				zap.Int("worker", id),
				zap.Any("panic", r),
			)
		}
	}()

	if err := task.Execute(); err != nil {
		p.tasksFailed.Add(1)
		p.logger.Warn("Task failed",
			zap.String("pool", p.config.Name),
			zap.Int("worker", id),
			zap.Error(err),
		)
		return
	}
	p.tasksCompleted.Add(1)
}
