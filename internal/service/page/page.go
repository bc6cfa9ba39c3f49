package page

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	serviceName = "page"
)

type PageRepository interface {
	GetPage(ctx context.Context) (string, error)
}

type pageService struct {
	repo PageRepository
	log  *slog.Logger
}

func NewPageService(repo PageRepository, log *slog.Logger) *pageService {
	return &pageService{
		repo: repo,
		log:  log.With(slog.String("service", serviceName)),
	}
}

func (p *pageService) GetPage(ctx context.Context) (string, error) {
	content, err := p.repo.GetPage(ctx)
	if err != nil {
		p.log.Error("Cannot get landing page content", slog.Any("error", err))

		return "", fmt.Errorf("cannot get landing page content: %w", err)
	}

	return content, nil
}
