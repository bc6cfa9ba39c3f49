// Package ytdlpadapter runs yt-dlp to read video metadata and to download a
// chosen format into the result directory.
package ytdlpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/lrstanley/go-ytdlp"
)

const (
	selectorBestMP4   = "best[ext=mp4]/best[height<=1080]/best"
	selectorAudioOnly = "bestaudio/best"
	audioFormatMP3    = "mp3"
	errorLinePrefix   = "ERROR:"
)

type OutputLocator interface {
	OutputTemplate(taskID string) string
}

// Internal struct to match yt-dlp JSON output
type videoJSON struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Thumbnail string       `json:"thumbnail"`
	Duration  float64      `json:"duration"`
	Uploader  string       `json:"uploader"`
	Formats   []formatJSON `json:"formats"`
}

type formatJSON struct {
	FormatID       string  `json:"format_id"`
	Ext            string  `json:"ext"`
	Resolution     string  `json:"resolution"`
	Height         float64 `json:"height"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	ABR            float64 `json:"abr"`
	FileSize       float64 `json:"filesize"`
	FileSizeApprox float64 `json:"filesize_approx"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	FormatNote     string  `json:"format_note"`
}

type ytdlpAdapter struct {
	executable string
	out        OutputLocator
	log        *slog.Logger
}

// NewYtDlpAdapter returns an adapter that runs the yt-dlp executable found at
// executable, or on PATH when executable is empty.
func NewYtDlpAdapter(executable string, out OutputLocator, log *slog.Logger) *ytdlpAdapter {
	return &ytdlpAdapter{
		executable: executable,
		out:        out,
		log:        log.With(slog.String("item", "YtDlpAdapter")),
	}
}

func (a *ytdlpAdapter) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoCheckCertificates().
		NoPlaylist()

	if a.executable != "" {
		cmd.SetExecutable(a.executable)
	}

	return cmd
}

// GetVideoInfo reads metadata and the raw format list without downloading.
func (a *ytdlpAdapter) GetVideoInfo(ctx context.Context, url string) (*entity.VideoInfo, error) {
	a.log.Debug("Extract info", slog.String("url", url))

	res, err := a.command().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, extractorError(res, err)
	}

	info, err := decodeVideoInfo([]byte(res.Stdout))
	if err != nil {
		return nil, &common.ExtractorError{Message: err.Error(), Err: err}
	}

	a.log.Debug("Info extracted", slog.String("url", url), slog.Int("formats", len(info.Formats)))

	return info, nil
}

// Fetch downloads task.FormatID of task.URL to <download dir>/<task id>.<ext>.
func (a *ytdlpAdapter) Fetch(ctx context.Context, task *entity.DownloadTask) error {
	selector, extractAudio := FormatSelector(task.FormatID)

	cmd := a.command().
		Format(selector).
		Output(a.out.OutputTemplate(task.ID))

	if extractAudio {
		cmd.ExtractAudio().AudioFormat(audioFormatMP3)
	}

	a.log.Info("Start download",
		slog.String("task_id", task.ID),
		slog.String("url", task.URL),
		slog.String("format", selector),
	)

	res, err := cmd.Run(ctx, task.URL)
	if err != nil {
		return extractorError(res, err)
	}

	return nil
}

// FormatSelector maps a menu format id to a yt-dlp format selector. The
// second result reports whether the audio must be extracted to mp3.
func FormatSelector(formatID string) (string, bool) {
	switch {
	case formatID == entity.FormatIDBestMP4:
		return selectorBestMP4, false
	case formatID == entity.FormatIDAudioOnly:
		return selectorAudioOnly, true
	case strings.HasPrefix(formatID, entity.MergedFormatPrefix):
		id := strings.TrimPrefix(formatID, entity.MergedFormatPrefix)

		return fmt.Sprintf("%s+bestaudio/best[height<=1080]/best", id), false
	}

	return fmt.Sprintf("%s+bestaudio/%s/best", formatID, formatID), false
}

func decodeVideoInfo(data []byte) (*entity.VideoInfo, error) {
	var v videoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("cannot decode yt-dlp output: %w", err)
	}

	info := &entity.VideoInfo{
		Title:     v.Title,
		Thumbnail: v.Thumbnail,
		Duration:  v.Duration,
		Uploader:  v.Uploader,
		Formats:   make([]entity.StreamFormat, 0, len(v.Formats)),
	}

	for _, f := range v.Formats {
		info.Formats = append(info.Formats, entity.StreamFormat{
			ID:             f.FormatID,
			Ext:            f.Ext,
			Resolution:     f.Resolution,
			Height:         int(f.Height),
			FPS:            f.FPS,
			Bitrate:        f.TBR,
			AudioBitrate:   f.ABR,
			FileSize:       int64(f.FileSize),
			FileSizeApprox: int64(f.FileSizeApprox),
			VideoCodec:     f.VCodec,
			AudioCodec:     f.ACodec,
			Note:           f.FormatNote,
		})
	}

	return info, nil
}

// extractorError prefers the last "ERROR:" line yt-dlp printed over the
// generic exit status error.
func extractorError(res *ytdlp.Result, err error) error {
	msg := err.Error()
	if res != nil {
		if line := lastErrorLine(res.Stderr); line != "" {
			msg = line
		}
	}

	return &common.ExtractorError{Message: msg, Err: err}
}

func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, errorLinePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, errorLinePrefix))
		}
	}

	return ""
}
