// Package registry holds the operator side of the task registry: periodic
// eviction of old finished statuses and yaml snapshots for inspection.
package registry

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/1rayanharoon/videodl/internal/config"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	serviceName = "registry"
)

type TaskRepository interface {
	Evict(ctx context.Context, ttl time.Duration) int
	Tasks(ctx context.Context) iter.Seq[entity.TaskStatus]
}

type Snapshot struct {
	DumpedAt time.Time           `yaml:"dumped_at"`
	Total    int                 `yaml:"total"`
	Pending  int                 `yaml:"pending"`
	Tasks    []entity.TaskStatus `yaml:"tasks"`
}

type registryService struct {
	repo TaskRepository
	fs   afero.Fs
	cfg  *config.RegistryConfig
	now  func() time.Time
	log  *slog.Logger
}

func NewRegistryService(repo TaskRepository, fs afero.Fs, cfg *config.RegistryConfig, log *slog.Logger) *registryService {
	return &registryService{
		repo: repo,
		fs:   fs,
		cfg:  cfg,
		now:  time.Now,
		log:  log.With(slog.String("service", serviceName)),
	}
}

// Run evicts old statuses every sweep interval until ctx is done. It returns
// at once when eviction is disabled.
func (s *registryService) Run(ctx context.Context) {
	if s.cfg.TTL <= 0 || s.cfg.SweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *registryService) Sweep(ctx context.Context) int {
	return s.repo.Evict(ctx, s.cfg.TTL)
}

func (s *registryService) Snapshot(ctx context.Context) *Snapshot {
	tasks := slices.Collect(s.repo.Tasks(ctx))

	snap := &Snapshot{
		DumpedAt: s.now().UTC(),
		Total:    len(tasks),
		Tasks:    tasks,
	}

	for _, t := range tasks {
		if !t.State.IsFinished() {
			snap.Pending++
		}
	}

	return snap
}

// Dump writes the current snapshot to the configured dump file. The file is
// never read back.
func (s *registryService) Dump(ctx context.Context) error {
	if s.cfg.DumpFileName == "" {
		return fmt.Errorf("dump file name is not set")
	}

	data, err := yaml.Marshal(s.Snapshot(ctx))
	if err != nil {
		return fmt.Errorf("cannot marshal snapshot: %w", err)
	}

	if err := afero.WriteFile(s.fs, s.cfg.DumpFileName, data, 0o644); err != nil {
		return fmt.Errorf("cannot write dump file %s: %w", s.cfg.DumpFileName, err)
	}

	s.log.Info("Registry dumped", slog.String("file", s.cfg.DumpFileName), slog.Int("bytes", len(data)))

	return nil
}
