package fsadapter

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
	"github.com/spf13/afero"
)

const (
	mimeTypeUnknown       = "application/octet-stream"
	mimeTypeCheckPartSize = 512
	dirPerm               = 0o755
)

// Suffixes of files yt-dlp leaves behind while a download is in flight.
var tempSuffixes = []string{".part", ".ytdl", ".temp", ".tmp"}

// fsAdapter owns the flat download directory. Every completed task leaves
// exactly one <task-id>.<ext> file in it.
type fsAdapter struct {
	fs  afero.Fs
	dir string
	log *slog.Logger
}

func NewFSAdapter(fs afero.Fs, dir string, log *slog.Logger) (*fsAdapter, error) {
	if dir == "" {
		return nil, fmt.Errorf("download directory is not set")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve download directory %s: %w", dir, err)
	}

	if err := fs.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("cannot create download directory %s: %w", abs, err)
	}

	return &fsAdapter{
		fs:  fs,
		dir: abs,
		log: log.With(slog.String("item", "FSAdapter")),
	}, nil
}

func (a *fsAdapter) Dir() string {
	return a.dir
}

// OutputTemplate is the yt-dlp output template for a task.
func (a *fsAdapter) OutputTemplate(taskID string) string {
	return filepath.Join(a.dir, taskID+".%(ext)s")
}

// Resolve maps a result file name to its path inside the download directory.
// Anything that is not a plain file name is rejected.
func (a *fsAdapter) Resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) ||
		filepath.Base(name) != name {
		return "", common.ErrInvalidFileName
	}

	path := filepath.Join(a.dir, name)
	rel, err := filepath.Rel(a.dir, path)
	if err != nil || rel != name {
		return "", common.ErrInvalidFileName
	}

	info, err := a.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", common.ErrFileNotFound
		}

		return "", fmt.Errorf("cannot stat %s: %w", name, err)
	}

	if info.IsDir() {
		return "", common.ErrFileNotFound
	}

	return path, nil
}

// Open returns the result file ready to be streamed. The caller closes Content.
func (a *fsAdapter) Open(name string) (*entity.ResultFile, error) {
	path, err := a.Resolve(name)
	if err != nil {
		return nil, err
	}

	file, err := a.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", name, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()

		return nil, fmt.Errorf("cannot stat %s: %w", name, err)
	}

	mimeType, err := a.getMimeType(path)
	if err != nil {
		a.log.Error("Cannot get file mimeType", slog.String("path", path), slog.Any("error", err))
	}

	return &entity.ResultFile{
		Name:     name,
		Size:     info.Size(),
		MIMEType: mimeType,
		ModTime:  info.ModTime(),
		Content:  file,
	}, nil
}

// Find returns the file name produced for taskID. When the extractor left
// several candidates (e.g. before and after audio extraction) the most
// recently written one wins.
func (a *fsAdapter) Find(taskID string) (string, error) {
	if taskID == "" || strings.ContainsAny(taskID, `/\*?[`) {
		return "", common.ErrInvalidFileName
	}

	matches, err := afero.Glob(a.fs, filepath.Join(a.dir, taskID+".*"))
	if err != nil {
		return "", fmt.Errorf("cannot search results of task %s: %w", taskID, err)
	}

	var (
		found string
		best  os.FileInfo
	)
	for _, match := range matches {
		if isTempFile(match) {
			continue
		}

		info, err := a.fs.Stat(match)
		if err != nil {
			a.log.Error("Cannot stat result candidate", slog.String("path", match), slog.Any("error", err))

			continue
		}

		if info.IsDir() {
			continue
		}

		if best == nil || info.ModTime().After(best.ModTime()) {
			found, best = filepath.Base(match), info
		}
	}

	if found == "" {
		return "", common.ErrFileNotFound
	}

	return found, nil
}

func isTempFile(path string) bool {
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}

	return false
}

func (a *fsAdapter) getMimeType(filePath string) (string, error) {
	if ext := filepath.Ext(filePath); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType, nil
		}
	}

	file, err := a.fs.Open(filePath)
	if err != nil {
		return mimeTypeUnknown, err
	}
	defer file.Close()

	buffer := make([]byte, mimeTypeCheckPartSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return mimeTypeUnknown, err
	}

	return http.DetectContentType(buffer[:n]), nil
}
