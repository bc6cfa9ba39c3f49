package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/1rayanharoon/videodl/internal/adapter/fsadapter"
	"github.com/1rayanharoon/videodl/internal/adapter/pageadapter"
	"github.com/1rayanharoon/videodl/internal/adapter/ytdlpadapter"
	"github.com/1rayanharoon/videodl/internal/config"
	"github.com/1rayanharoon/videodl/internal/entity"
	httphandler "github.com/1rayanharoon/videodl/internal/handler/http"
	"github.com/1rayanharoon/videodl/internal/repository/task"
	srvdownload "github.com/1rayanharoon/videodl/internal/service/download"
	"github.com/1rayanharoon/videodl/internal/service/info"
	"github.com/1rayanharoon/videodl/internal/service/page"
	"github.com/1rayanharoon/videodl/internal/service/registry"
	"github.com/1rayanharoon/videodl/internal/service/worker"
	"github.com/1rayanharoon/videodl/internal/storage/queue"
	"github.com/rs/cors"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

const (
	dumpTimeout     = 5 * time.Second
	httpStopTimeout = 5 * time.Second
)

type WorkerPool interface {
	Start(ctx context.Context)
	Wait(ctx context.Context) error
}

type Registry interface {
	Run(ctx context.Context)
	Sweep(ctx context.Context) int
	Dump(ctx context.Context) error
}

type App struct {
	cfgPath  string
	cfg      *config.Config
	srv      *http.Server
	queue    *queue.Queue[*entity.DownloadTask]
	workers  WorkerPool
	registry Registry
	cancel   context.CancelFunc
	log      *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	lo := &slog.HandlerOptions{}
	switch a.cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, lo))
	a.log = log

	fs := afero.NewOsFs()

	store, err := fsadapter.NewFSAdapter(fs, a.cfg.DownloadDir, log)
	if err != nil {
		panic(err)
	}

	pages, err := pageadapter.NewPageAdapter(fs, a.cfg.Handler.PageFileName, log)
	if err != nil {
		panic(err)
	}

	extractor := ytdlpadapter.NewYtDlpAdapter(a.cfg.Extractor.Path, store, log)
	repo := task.NewTaskRepository(log)
	a.queue = queue.New[*entity.DownloadTask]()

	var limiter *rate.Limiter
	if a.cfg.Extractor.InfoRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(a.cfg.Extractor.InfoRate), a.cfg.Extractor.InfoBurst)
	}

	infoSrv := info.NewInfoService(extractor, limiter, a.cfg.Extractor.InfoTimeout, log)
	dSrv := srvdownload.NewDownloadService(repo, a.queue, store, log)
	pSrv := page.NewPageService(pages, log)
	a.registry = registry.NewRegistryService(repo, fs, &a.cfg.Registry, log)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.workers = worker.NewWorkerPool(a.queue, extractor, store, repo, &a.cfg.Worker, log)
	a.workers.Start(ctx)

	go a.registry.Run(ctx)

	mux := httphandler.NewMux(pSrv, infoSrv, dSrv, log)
	c := cors.New(cors.Options{
		AllowedOrigins: a.cfg.Handler.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	a.srv = &http.Server{
		Addr:    a.cfg.Listen,
		Handler: c.Handler(mux),
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen), slog.String("download_dir", store.Dir()),
			slog.Int("workers", a.cfg.Worker.Workers))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

func (a *App) Dump() {
	ctx, cancel := context.WithTimeout(context.Background(), dumpTimeout)
	defer cancel()

	if err := a.registry.Dump(ctx); err != nil {
		a.log.Error("Cannot dump registry", slog.Any("error", err))
	}
}

func (a *App) Sweep() {
	n := a.registry.Sweep(context.Background())
	a.log.Info("Registry swept", slog.Int("evicted", n))
}

// Stop stops accepting requests, lets the workers finish what is queued and
// kills the in-flight download once the shutdown timeout expires.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), httpStopTimeout)
	defer cancel()

	if err := a.srv.Shutdown(ctx); err != nil {
		a.log.Error("Cannot shutdown http server", slog.Any("error", err))
	}

	a.queue.Close()
	pending := a.queue.Len()
	a.log.Info("Waiting for downloads", slog.Int("queued", pending), slog.Duration("timeout", a.cfg.Worker.ShutdownTimeout))

	wctx, wcancel := context.WithTimeout(context.Background(), a.cfg.Worker.ShutdownTimeout)
	defer wcancel()

	if err := a.workers.Wait(wctx); err != nil {
		a.log.Warn("Downloads interrupted", slog.Any("error", err))
		a.cancel()

		// Give the killed process a moment to be recorded.
		fctx, fcancel := context.WithTimeout(context.Background(), httpStopTimeout)
		defer fcancel()
		a.workers.Wait(fctx)

		return
	}

	a.cancel()
}
