package registry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/1rayanharoon/videodl/internal/config"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/1rayanharoon/videodl/internal/repository/task"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fill(t *testing.T) TaskRepository {
	t.Helper()

	repo := task.NewTaskRepository(newLogger())
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &entity.DownloadTask{
			ID:        id,
			URL:       "https://example.com/" + id,
			FormatID:  "18",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	require.NoError(t, repo.Complete(ctx, "a", "a.mp4"))
	require.NoError(t, repo.Fail(ctx, "b", "ERROR: Video unavailable"))

	return repo
}

func TestDump(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.RegistryConfig{DumpFileName: "/var/lib/videodl/tasks.yml"}
	srv := NewRegistryService(fill(t), fs, cfg, newLogger())

	require.NoError(t, srv.Dump(context.Background()))

	data, err := afero.ReadFile(fs, cfg.DumpFileName)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, yaml.Unmarshal(data, &snap))
	require.Equal(t, 3, snap.Total)
	require.Equal(t, 1, snap.Pending)
	require.Len(t, snap.Tasks, 3)

	require.Equal(t, "a", snap.Tasks[0].ID)
	require.Equal(t, entity.TaskStateComplete, snap.Tasks[0].State)
	require.Equal(t, "a.mp4", snap.Tasks[0].Filename)
	require.Equal(t, entity.TaskStateError, snap.Tasks[1].State)
	require.Equal(t, "ERROR: Video unavailable", snap.Tasks[1].Error)
	require.Equal(t, entity.TaskStatePending, snap.Tasks[2].State)
}

func TestDumpWithoutFileName(t *testing.T) {
	srv := NewRegistryService(fill(t), afero.NewMemMapFs(), &config.RegistryConfig{}, newLogger())
	require.Error(t, srv.Dump(context.Background()))
}

type evictCounter struct {
	TaskRepository
	calls chan time.Duration
}

func (e *evictCounter) Evict(_ context.Context, ttl time.Duration) int {
	e.calls <- ttl

	return 0
}

func TestRunSweeps(t *testing.T) {
	repo := &evictCounter{calls: make(chan time.Duration, 10)}
	cfg := &config.RegistryConfig{TTL: time.Hour, SweepInterval: 5 * time.Millisecond}
	srv := NewRegistryService(repo, afero.NewMemMapFs(), cfg, newLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()

	select {
	case ttl := <-repo.calls:
		require.Equal(t, time.Hour, ttl)
	case <-time.After(time.Second):
		t.Fatal("no sweep happened")
	}

	cancel()
	<-done
}

func TestRunDisabled(t *testing.T) {
	srv := NewRegistryService(&evictCounter{}, afero.NewMemMapFs(), &config.RegistryConfig{}, newLogger())

	done := make(chan struct{})
	go func() {
		srv.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run must return when eviction is disabled")
	}
}
