package pageadapter

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetPageDefault(t *testing.T) {
	a, err := NewPageAdapter(afero.NewMemMapFs(), "", newLogger())
	require.NoError(t, err)

	page, err := a.GetPage(context.Background())
	require.NoError(t, err)

	require.Contains(t, page, "<title>Video Downloader</title>")
	require.Contains(t, page, "<strong>Get formats</strong>")
	require.Contains(t, page, `id="info-form"`)
	require.NotContains(t, page, "description: Download")
}

func TestGetPageOverride(t *testing.T) {
	testCases := []struct {
		name            string
		content         string
		expectedTitle   string
		expectedContent string
	}{
		{
			name:            "frontmatter title",
			content:         "---\ntitle: My <Downloader>\ndescription: mine\n---\n# Hello\n",
			expectedTitle:   "<title>My &lt;Downloader&gt;</title>",
			expectedContent: "<h1>Hello</h1>",
		},
		{
			name:            "no frontmatter",
			content:         "plain *text*",
			expectedTitle:   "<title>Video Downloader</title>",
			expectedContent: "<em>text</em>",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/etc/videodl/index.md", []byte(tc.content), 0o644))

			a, err := NewPageAdapter(fs, "/etc/videodl/index.md", newLogger())
			require.NoError(t, err)

			page, err := a.GetPage(context.Background())
			require.NoError(t, err)
			require.Contains(t, page, tc.expectedTitle)
			require.Contains(t, page, tc.expectedContent)
		})
	}
}

func TestGetPageMissingFile(t *testing.T) {
	a, err := NewPageAdapter(afero.NewMemMapFs(), "/missing.md", newLogger())
	require.NoError(t, err)

	_, err = a.GetPage(context.Background())
	require.Error(t, err)
}
