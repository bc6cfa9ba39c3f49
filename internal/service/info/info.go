package info

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/1rayanharoon/videodl/internal/service/curator"
	"github.com/1rayanharoon/videodl/internal/util"
	"golang.org/x/time/rate"
)

const (
	serviceName = "info"
)

var friendlyMessages = []struct {
	marker  string
	message string
}{
	{
		marker:  "Failed to extract any player response",
		message: "This video cannot be processed. It might be private, deleted, or have restrictions. Please try a different video.",
	},
	{
		marker:  "Video unavailable",
		message: "This video is unavailable. It might be private, deleted, or restricted in your region.",
	},
	{
		marker:  "Private video",
		message: "This video is private and cannot be downloaded.",
	},
	{
		marker:  "Sign in to confirm your age",
		message: "This video has age restrictions that prevent automatic downloading.",
	},
}

type Extractor interface {
	GetVideoInfo(ctx context.Context, url string) (*entity.VideoInfo, error)
}

type infoService struct {
	extractor Extractor
	limiter   *rate.Limiter
	timeout   time.Duration
	log       *slog.Logger
}

// NewInfoService returns the metadata service. A nil limiter disables rate
// limiting and a zero timeout leaves the request context as is.
func NewInfoService(extractor Extractor, limiter *rate.Limiter, timeout time.Duration, log *slog.Logger) *infoService {
	return &infoService{
		extractor: extractor,
		limiter:   limiter,
		timeout:   timeout,
		log:       log.With(slog.String("service", serviceName)),
	}
}

func (s *infoService) GetFormats(ctx context.Context, url string) (*entity.FormatMenu, error) {
	url = strings.TrimSpace(url)
	if err := util.CheckMediaURL(url); err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("cannot wait for extractor slot: %w", err)
		}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	info, err := s.extractor.GetVideoInfo(ctx, url)
	if err != nil {
		s.log.Error("Cannot extract video info", slog.String("url", url), slog.Any("error", err))

		return nil, &common.ExtractorError{Message: FriendlyError(err.Error()), Err: err}
	}

	video, audio := curator.Curate(info.Formats, info.Duration)

	s.log.Debug("Formats curated", slog.String("url", url), slog.Int("raw", len(info.Formats)),
		slog.Int("video", len(video)), slog.Int("audio", len(audio)))

	return &entity.FormatMenu{
		Title:        info.Title,
		Thumbnail:    info.Thumbnail,
		Duration:     info.Duration,
		Uploader:     info.Uploader,
		VideoFormats: video,
		AudioFormats: audio,
	}, nil
}

// FriendlyError maps well known extractor failures to a message a user can
// act on. Unknown messages are returned unchanged.
func FriendlyError(msg string) string {
	for _, f := range friendlyMessages {
		if strings.Contains(msg, f.marker) {
			return f.message
		}
	}

	return msg
}
