package ytdlpadapter

import (
	"errors"
	"testing"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/require"
)

func TestFormatSelector(t *testing.T) {
	testCases := []struct {
		formatID     string
		selector     string
		extractAudio bool
	}{
		{entity.FormatIDBestMP4, "best[ext=mp4]/best[height<=1080]/best", false},
		{entity.FormatIDAudioOnly, "bestaudio/best", true},
		{"merged_137", "137+bestaudio/best[height<=1080]/best", false},
		{"22", "22+bestaudio/22/best", false},
	}

	for _, tc := range testCases {
		t.Run(tc.formatID, func(t *testing.T) {
			selector, extractAudio := FormatSelector(tc.formatID)
			require.Equal(t, tc.selector, selector)
			require.Equal(t, tc.extractAudio, extractAudio)
		})
	}
}

const sampleInfo = `{
  "id": "abc",
  "title": "Sample clip",
  "thumbnail": "https://i.example.com/abc.jpg",
  "duration": 212.5,
  "uploader": "Someone",
  "formats": [
    {"format_id": "sb0", "ext": "mhtml", "resolution": "48x27", "vcodec": "none", "acodec": "none", "format_note": "storyboard"},
    {"format_id": "140", "ext": "m4a", "resolution": "audio only", "height": null, "tbr": 129.5, "abr": 129.5, "filesize": 3437000, "vcodec": "none", "acodec": "mp4a.40.2"},
    {"format_id": "18", "ext": "mp4", "resolution": "640x360", "height": 360, "fps": 25, "tbr": 600.1, "filesize_approx": 15942611.0, "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "format_note": "360p"}
  ]
}`

func TestDecodeVideoInfo(t *testing.T) {
	info, err := decodeVideoInfo([]byte(sampleInfo))
	require.NoError(t, err)

	require.Equal(t, "Sample clip", info.Title)
	require.Equal(t, "https://i.example.com/abc.jpg", info.Thumbnail)
	require.Equal(t, 212.5, info.Duration)
	require.Equal(t, "Someone", info.Uploader)
	require.Len(t, info.Formats, 3)

	audio := info.Formats[1]
	require.Equal(t, "140", audio.ID)
	require.Equal(t, 0, audio.Height)
	require.Equal(t, int64(3437000), audio.FileSize)
	require.True(t, audio.HasAudio())
	require.False(t, audio.HasVideo())

	combined := info.Formats[2]
	require.Equal(t, 360, combined.Height)
	require.Equal(t, int64(15942611), combined.FileSizeApprox)
	require.Equal(t, "360p", combined.Note)
	require.True(t, combined.HasAudio())
	require.True(t, combined.HasVideo())

	_, err = decodeVideoInfo([]byte("not json"))
	require.Error(t, err)
}

func TestExtractorError(t *testing.T) {
	cause := errors.New("exit status 1")

	err := extractorError(&ytdlp.Result{
		Stderr: "WARNING: something\nERROR: [youtube] abc: Video unavailable\n",
	}, cause)
	require.ErrorIs(t, err, common.ErrExtractionFailed)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "[youtube] abc: Video unavailable", err.Error())

	err = extractorError(nil, cause)
	require.Equal(t, "exit status 1", err.Error())

	err = extractorError(&ytdlp.Result{Stderr: "nothing useful"}, cause)
	require.Equal(t, "exit status 1", err.Error())
}
