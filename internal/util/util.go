package util

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/google/uuid"
)

func NewTaskID() string {
	return uuid.NewString()
}

func IsTaskID(str string) bool {
	_, err := uuid.Parse(str)

	return err == nil && len(str) == 36
}

// TaskIDFromFileName strips the extension from a result file name.
func TaskIDFromFileName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// CheckMediaURL accepts only absolute http(s) URLs with a host.
func CheckMediaURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.ErrURLRequired
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s", common.ErrInvalidURL, raw)
	}

	return nil
}
