package download

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"testing"

	"github.com/1rayanharoon/videodl/internal/adapter/fsadapter"
	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/1rayanharoon/videodl/internal/repository/task"
	"github.com/1rayanharoon/videodl/internal/storage/queue"
	"github.com/1rayanharoon/videodl/internal/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const (
	downloadDir = "/downloads"
	videoURL    = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
)

type registry interface {
	TaskRepository
	Complete(ctx context.Context, id, filename string) error
	Tasks(ctx context.Context) iter.Seq[entity.TaskStatus]
}

type fixture struct {
	fs    afero.Fs
	repo  registry
	queue *queue.Queue[*entity.DownloadTask]
	srv   *downloadService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	fs := afero.NewMemMapFs()
	store, err := fsadapter.NewFSAdapter(fs, downloadDir, log)
	require.NoError(t, err)

	repo := task.NewTaskRepository(log)
	q := queue.New[*entity.DownloadTask]()

	return &fixture{
		fs:    fs,
		repo:  repo,
		queue: q,
		srv:   NewDownloadService(repo, q, store, log),
	}
}

func TestStartDownload(t *testing.T) {
	f := newFixture(t)

	id, err := f.srv.StartDownload(context.Background(), " "+videoURL+" ", " 18 ")
	require.NoError(t, err)
	require.True(t, util.IsTaskID(id))

	st, err := f.srv.GetStatus(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, entity.TaskStatePending, st.State)
	require.Equal(t, videoURL, st.URL)
	require.Equal(t, "18", st.FormatID)

	require.Equal(t, 1, f.queue.Len())
	queued, ok := f.queue.Pop(context.Background())
	require.True(t, ok)
	require.Equal(t, id, queued.ID)
	require.Equal(t, "18", queued.FormatID)
}

func TestStartDownloadValidation(t *testing.T) {
	testCases := []struct {
		name        string
		url         string
		formatID    string
		expectedErr error
	}{
		{"missing url", "", "18", common.ErrURLRequired},
		{"bad url", "not a url", "18", common.ErrInvalidURL},
		{"missing format", videoURL, "", common.ErrFormatRequired},
		{"blank format", videoURL, "   ", common.ErrFormatRequired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.srv.StartDownload(context.Background(), tc.url, tc.formatID)
			require.ErrorIs(t, err, tc.expectedErr)
			require.Equal(t, 0, f.queue.Len())
		})
	}
}

func TestStartDownloadAfterClose(t *testing.T) {
	f := newFixture(t)
	f.queue.Close()

	_, err := f.srv.StartDownload(context.Background(), videoURL, "best_mp4")
	require.ErrorIs(t, err, common.ErrQueueClosed)

	var statuses []entity.TaskStatus
	for st := range f.repo.Tasks(context.Background()) {
		statuses = append(statuses, st)
	}
	require.Len(t, statuses, 1)
	require.Equal(t, entity.TaskStateError, statuses[0].State)
}

func TestGetStatusUnknown(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"", "nope", util.NewTaskID()} {
		_, err := f.srv.GetStatus(context.Background(), id)
		require.ErrorIs(t, err, common.ErrTaskNotFound, id)
	}
}

func TestFetchResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.srv.StartDownload(ctx, videoURL, "18")
	require.NoError(t, err)

	name := id + ".mp4"
	require.NoError(t, afero.WriteFile(f.fs, downloadDir+"/"+name, []byte("video"), 0o644))

	// Not complete yet.
	_, err = f.srv.FetchResult(ctx, name)
	require.ErrorIs(t, err, common.ErrFileNotFound)

	require.NoError(t, f.repo.Complete(ctx, id, name))

	file, err := f.srv.FetchResult(ctx, name)
	require.NoError(t, err)
	defer file.Content.Close()

	require.Equal(t, name, file.Name)
	require.Equal(t, int64(5), file.Size)

	data, err := io.ReadAll(file.Content)
	require.NoError(t, err)
	require.Equal(t, "video", string(data))
}

func TestFetchResultRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.srv.StartDownload(ctx, videoURL, "18")
	require.NoError(t, err)

	name := id + ".mp4"
	require.NoError(t, afero.WriteFile(f.fs, downloadDir+"/"+name, []byte("video"), 0o644))
	require.NoError(t, afero.WriteFile(f.fs, downloadDir+"/"+id+".webm", []byte("other"), 0o644))
	require.NoError(t, afero.WriteFile(f.fs, downloadDir+"/stray.mp4", []byte("stray"), 0o644))
	require.NoError(t, f.repo.Complete(ctx, id, name))

	testCases := []struct {
		name        string
		filename    string
		expectedErr error
	}{
		{"traversal", "../etc/passwd", common.ErrInvalidFileName},
		{"nested", "sub/" + name, common.ErrInvalidFileName},
		{"empty", "", common.ErrInvalidFileName},
		{"missing", util.NewTaskID() + ".mp4", common.ErrFileNotFound},
		{"not from a task", "stray.mp4", common.ErrFileNotFound},
		{"other file of the task", id + ".webm", common.ErrFileNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.srv.FetchResult(ctx, tc.filename)
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}
