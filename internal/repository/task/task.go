package task

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
)

// taskRepository keeps task statuses in memory for the process lifetime.
// Many readers (status polls) and the workers share it under one RWMutex;
// no operation spans more than a single read or write.
type taskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*entity.TaskStatus
	now   func() time.Time
	log   *slog.Logger
}

func NewTaskRepository(log *slog.Logger) *taskRepository {
	return &taskRepository{
		tasks: make(map[string]*entity.TaskStatus),
		now:   time.Now,
		log:   log.With(slog.String("item", "TaskRepository")),
	}
}

// Create registers task as pending. It must happen before the task is queued.
func (r *taskRepository) Create(_ context.Context, task *entity.DownloadTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		return fmt.Errorf("cannot create task %s: duplicate id", task.ID)
	}

	r.tasks[task.ID] = &entity.TaskStatus{
		ID:        task.ID,
		URL:       task.URL,
		FormatID:  task.FormatID,
		State:     entity.TaskStatePending,
		CreatedAt: task.CreatedAt,
	}

	return nil
}

func (r *taskRepository) Complete(_ context.Context, id, filename string) error {
	return r.finish(id, func(s *entity.TaskStatus) {
		s.State = entity.TaskStateComplete
		s.Filename = filename
	})
}

func (r *taskRepository) Fail(_ context.Context, id, message string) error {
	return r.finish(id, func(s *entity.TaskStatus) {
		s.State = entity.TaskStateError
		s.Error = message
	})
}

func (r *taskRepository) finish(id string, apply func(*entity.TaskStatus)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, exists := r.tasks[id]
	if !exists {
		return common.ErrTaskNotFound
	}

	if status.State.IsFinished() {
		return fmt.Errorf("cannot update task %s in state %s: %w", id, status.State, common.ErrTaskAlreadyFinished)
	}

	apply(status)
	status.FinishedAt = r.now()

	return nil
}

// Get returns a copy of the task status.
func (r *taskRepository) Get(_ context.Context, id string) (*entity.TaskStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, exists := r.tasks[id]
	if !exists {
		return nil, common.ErrTaskNotFound
	}

	s := *status

	return &s, nil
}

// Evict removes finished tasks older than ttl and returns how many were
// removed. Pending tasks are never evicted.
func (r *taskRepository) Evict(_ context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	deadline := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	for id, status := range r.tasks {
		if status.State.IsFinished() && status.FinishedAt.Before(deadline) {
			delete(r.tasks, id)
			count++
		}
	}

	if count > 0 {
		r.log.Info("Evicted finished tasks", slog.Int("count", count), slog.Duration("ttl", ttl))
	}

	return count
}

// Tasks yields copies of all statuses ordered by creation time.
func (r *taskRepository) Tasks(_ context.Context) iter.Seq[entity.TaskStatus] {
	r.mu.RLock()
	list := make([]entity.TaskStatus, 0, len(r.tasks))
	for _, status := range r.tasks {
		list = append(list, *status)
	}
	r.mu.RUnlock()

	slices.SortFunc(list, func(a, b entity.TaskStatus) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return slices.Values(list)
}
