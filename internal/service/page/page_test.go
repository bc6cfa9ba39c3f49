package page

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type repoFunc func(ctx context.Context) (string, error)

func (f repoFunc) GetPage(ctx context.Context) (string, error) {
	return f(ctx)
}

func TestGetPage(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := NewPageService(repoFunc(func(context.Context) (string, error) { return "<html></html>", nil }), log)
	content, err := srv.GetPage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "<html></html>", content)

	cause := errors.New("broken")
	srv = NewPageService(repoFunc(func(context.Context) (string, error) { return "", cause }), log)
	_, err = srv.GetPage(context.Background())
	require.ErrorIs(t, err, cause)
}
