// Package worker runs the download loops that drain the task queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/1rayanharoon/videodl/internal/config"
	"github.com/1rayanharoon/videodl/internal/entity"
)

type TaskQueue interface {
	Pop(ctx context.Context) (*entity.DownloadTask, bool)
}

type Fetcher interface {
	Fetch(ctx context.Context, task *entity.DownloadTask) error
}

type ResultFinder interface {
	Find(taskID string) (string, error)
}

type TaskRepository interface {
	Complete(ctx context.Context, id, filename string) error
	Fail(ctx context.Context, id, message string) error
}

type workerPool struct {
	queue   TaskQueue
	fetcher Fetcher
	results ResultFinder
	repo    TaskRepository
	cfg     *config.WorkerConfig
	wg      sync.WaitGroup
	log     *slog.Logger
}

func NewWorkerPool(queue TaskQueue, fetcher Fetcher, results ResultFinder, repo TaskRepository,
	cfg *config.WorkerConfig, log *slog.Logger) *workerPool {
	return &workerPool{
		queue:   queue,
		fetcher: fetcher,
		results: results,
		repo:    repo,
		cfg:     cfg,
		log:     log.With(slog.String("item", "WorkerPool")),
	}
}

// Start launches the download loops. They return once the queue is closed
// and drained, or when ctx is cancelled.
func (p *workerPool) Start(ctx context.Context) {
	workers := max(p.cfg.Workers, 1)

	p.wg.Add(workers)
	for n := range workers {
		go p.worker(ctx, n)
	}
}

// Wait blocks until every loop has returned or ctx is done.
func (p *workerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *workerPool) worker(ctx context.Context, n int) {
	defer p.wg.Done()

	log := p.log.With(slog.Int("worker_id", n))
	log.Info("Started")

	for {
		task, ok := p.queue.Pop(ctx)
		if !ok {
			break
		}

		p.process(ctx, log, task)
	}

	log.Info("Done")
}

// process runs one task and records exactly one outcome for it.
func (p *workerPool) process(ctx context.Context, log *slog.Logger, task *entity.DownloadTask) {
	log = log.With(slog.String("task_id", task.ID))
	log.Info("Download started", slog.String("url", task.URL), slog.String("format_id", task.FormatID))

	start := time.Now()

	filename, err := p.run(ctx, task)

	// The outcome is recorded even if ctx was cancelled mid download.
	rctx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error("Download failed", slog.Any("error", err))

		if err := p.repo.Fail(rctx, task.ID, err.Error()); err != nil {
			log.Error("Cannot record failure", slog.Any("error", err))
		}

		return
	}

	log.Info("Download complete", slog.String("filename", filename), slog.Duration("took", time.Since(start)))

	if err := p.repo.Complete(rctx, task.ID, filename); err != nil {
		log.Error("Cannot record completion", slog.Any("error", err))
	}
}

func (p *workerPool) run(ctx context.Context, task *entity.DownloadTask) (filename string, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Download panicked", slog.String("task_id", task.ID), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("download panicked: %v", r)
		}
	}()

	if err := p.fetcher.Fetch(ctx, task); err != nil {
		return "", err
	}

	filename, err = p.results.Find(task.ID)
	if err != nil {
		return "", fmt.Errorf("cannot locate downloaded file: %w", err)
	}

	return filename, nil
}
