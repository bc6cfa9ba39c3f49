package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/1rayanharoon/videodl/internal/common"
	"github.com/1rayanharoon/videodl/internal/entity"
)

const (
	maxBodySize = 1 << 16

	DownloadPathPrefix = "/download/"

	statusNotFound  = "not_found"
	downloadStarted = "Download started"
)

type PageService interface {
	GetPage(ctx context.Context) (string, error)
}

type InfoService interface {
	GetFormats(ctx context.Context, url string) (*entity.FormatMenu, error)
}

type DownloadService interface {
	StartDownload(ctx context.Context, url, formatID string) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.TaskStatus, error)
	FetchResult(ctx context.Context, filename string) (*entity.ResultFile, error)
}

type infoRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
}

type downloadResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

type statusResponse struct {
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewMux registers every route of the service.
func NewMux(page PageService, info InfoService, download DownloadService, log *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", NewPageHandler(page, log))
	mux.Handle("POST /api/info", NewInfoHandler(info, log))
	mux.Handle("POST /api/download", NewDownloadHandler(download, log))
	mux.Handle("GET /api/status/{id}", NewStatusHandler(download, log))
	mux.Handle("GET "+DownloadPathPrefix+"{filename}", NewFileHandler(download, log))

	return mux
}

func NewPageHandler(srv PageService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PageHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		content, err := srv.GetPage(r.Context())
		if err != nil {
			log.Error("Cannot render page", slog.Any("error", err))
			http.Error(w, "Cannot get page", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(content))
	}
}

func NewInfoHandler(srv InfoService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "InfoHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"}, log)

			return
		}

		menu, err := srv.GetFormats(r.Context(), req.URL)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrURLRequired):
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"}, log)
			case errors.Is(err, common.ErrInvalidURL):
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid URL"}, log)
			default:
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, log)
			}

			return
		}

		writeJSON(w, http.StatusOK, menu, log)
	}
}

func NewDownloadHandler(srv DownloadService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "DownloadHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"}, log)

			return
		}

		id, err := srv.StartDownload(r.Context(), req.URL, req.FormatID)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrURLRequired), errors.Is(err, common.ErrFormatRequired):
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL and format_id are required"}, log)
			case errors.Is(err, common.ErrInvalidURL):
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid URL"}, log)
			case errors.Is(err, common.ErrQueueClosed):
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Server is shutting down"}, log)
			default:
				log.Error("Cannot start download", slog.Any("error", err))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()}, log)
			}

			return
		}

		writeJSON(w, http.StatusOK, downloadResponse{TaskID: id, Message: downloadStarted}, log)
	}
}

func NewStatusHandler(srv DownloadService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "StatusHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		status, err := srv.GetStatus(r.Context(), r.PathValue("id"))
		if err != nil {
			if !errors.Is(err, common.ErrTaskNotFound) {
				log.Error("Cannot get status", slog.Any("error", err))
			}

			writeJSON(w, http.StatusNotFound, statusResponse{Status: statusNotFound}, log)

			return
		}

		resp := statusResponse{Status: status.State.String()}
		switch status.State {
		case entity.TaskStateComplete:
			resp.DownloadURL = DownloadPathPrefix + url.PathEscape(status.Filename)
		case entity.TaskStateError:
			resp.Error = status.Error
		}

		writeJSON(w, http.StatusOK, resp, log)
	}
}

func NewFileHandler(srv DownloadService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "FileHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		file, err := srv.FetchResult(r.Context(), r.PathValue("filename"))
		if err != nil {
			switch {
			case errors.Is(err, common.ErrInvalidFileName):
				http.Error(w, "Bad request", http.StatusBadRequest)
			case errors.Is(err, common.ErrFileNotFound):
				http.Error(w, "File not found", http.StatusNotFound)
			default:
				log.Error("Cannot fetch result", slog.Any("error", err))
				http.Error(w, "Cannot get file", http.StatusInternalServerError)
			}

			return
		}
		defer file.Content.Close()

		log.Info("Serve file", slog.String("name", file.Name), slog.Int64("size", file.Size))

		if file.MIMEType != "" {
			w.Header().Set("Content-Type", file.MIMEType)
		}
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))

		http.ServeContent(w, r, file.Name, file.ModTime, file.Content)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v)
}

func writeJSON(w http.ResponseWriter, code int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Cannot encode response", slog.Any("error", err))
	}
}
