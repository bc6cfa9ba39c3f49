package download

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/1rayanharoon/videodl/internal/util"
)

const (
	serviceName = "download"

	shutdownMessage = "server is shutting down"
)

type TaskRepository interface {
	Create(ctx context.Context, task *entity.DownloadTask) error
	Fail(ctx context.Context, id, message string) error
	Get(ctx context.Context, id string) (*entity.TaskStatus, error)
}

type TaskQueue interface {
	Push(task *entity.DownloadTask) error
}

type ResultStore interface {
	Resolve(name string) (string, error)
	Open(name string) (*entity.ResultFile, error)
}

type downloadService struct {
	repo  TaskRepository
	queue TaskQueue
	store ResultStore
	now   func() time.Time
	log   *slog.Logger
}

func NewDownloadService(repo TaskRepository, queue TaskQueue, store ResultStore, log *slog.Logger) *downloadService {
	return &downloadService{
		repo:  repo,
		queue: queue,
		store: store,
		now:   time.Now,
		log:   log.With(slog.String("service", serviceName)),
	}
}

// StartDownload registers a new task and queues it. The registry entry is
// written before the task becomes visible to workers.
func (d *downloadService) StartDownload(ctx context.Context, url, formatID string) (string, error) {
	url = strings.TrimSpace(url)
	formatID = strings.TrimSpace(formatID)

	if err := util.CheckMediaURL(url); err != nil {
		return "", err
	}

	if formatID == "" {
		return "", common.ErrFormatRequired
	}

	task := &entity.DownloadTask{
		ID:        util.NewTaskID(),
		URL:       url,
		FormatID:  formatID,
		CreatedAt: d.now(),
	}

	if err := d.repo.Create(ctx, task); err != nil {
		return "", fmt.Errorf("cannot register task: %w", err)
	}

	if err := d.queue.Push(task); err != nil {
		if err := d.repo.Fail(ctx, task.ID, shutdownMessage); err != nil {
			d.log.Error("Cannot fail rejected task", slog.String("task_id", task.ID), slog.Any("error", err))
		}

		return "", fmt.Errorf("cannot queue task %s: %w", task.ID, err)
	}

	d.log.Info("Task queued", slog.String("task_id", task.ID), slog.String("url", url), slog.String("format_id", formatID))

	return task.ID, nil
}

func (d *downloadService) GetStatus(ctx context.Context, id string) (*entity.TaskStatus, error) {
	if !util.IsTaskID(id) {
		return nil, common.ErrTaskNotFound
	}

	status, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get task %s status: %w", id, err)
	}

	return status, nil
}

// FetchResult opens a finished download. Only files recorded by a completed
// task can be fetched.
func (d *downloadService) FetchResult(ctx context.Context, filename string) (*entity.ResultFile, error) {
	if _, err := d.store.Resolve(filename); err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", filename, err)
	}

	id := util.TaskIDFromFileName(filename)

	status, err := d.repo.Get(ctx, id)
	if err != nil || status.State != entity.TaskStateComplete || status.Filename != filename {
		d.log.Warn("Result is not owned by a completed task", slog.String("filename", filename))

		return nil, common.ErrFileNotFound
	}

	file, err := d.store.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", filename, err)
	}

	return file, nil
}
