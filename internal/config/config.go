package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	EnvPrefix  = "VIDEODL"
	EnvPort    = "PORT"
	EnvDotFile = ".env"

	defaultListen          = ":5001"
	defaultDownloadDir     = "downloads"
	defaultWorkers         = 1
	defaultInfoTimeout     = 60 * time.Second
	defaultInfoRate        = 2
	defaultInfoBurst       = 4
	defaultSweepInterval   = 10 * time.Minute
	defaultShutdownTimeout = 10 * time.Minute
	defaultDumpFileName    = "tasks.yml"
)

// Environment keys are derived from field names, e.g. VIDEODL_WORKER_WORKERS.
// Fields must not carry envconfig tags: a tag also matches the unprefixed
// variable (PATH for Extractor.Path).

type ExtractorConfig struct {
	// Path to the yt-dlp executable, PATH lookup when empty.
	Path        string        `yaml:"path"`
	InfoTimeout time.Duration `yaml:"info_timeout" split_words:"true"`
	// Metadata requests per second; 0 disables the limit.
	InfoRate  float64 `yaml:"info_rate" split_words:"true"`
	InfoBurst int     `yaml:"info_burst" split_words:"true"`
}

type WorkerConfig struct {
	Workers         int           `yaml:"workers"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type RegistryConfig struct {
	// Finished statuses older than TTL are evicted; 0 keeps them forever.
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval" split_words:"true"`
	DumpFileName  string        `yaml:"dump_filename" split_words:"true"`
}

type HandlerConfig struct {
	CORSOrigins  []string `yaml:"cors_origins" split_words:"true"`
	PageFileName string   `yaml:"page_filename" split_words:"true"`
}

type Config struct {
	Listen      string          `yaml:"listen"`
	LogLevel    string          `yaml:"log_level" split_words:"true"`
	DownloadDir string          `yaml:"download_dir" split_words:"true"`
	Extractor   ExtractorConfig `yaml:"extractor"`
	Worker      WorkerConfig    `yaml:"worker"`
	Registry    RegistryConfig  `yaml:"registry"`
	Handler     HandlerConfig   `yaml:"handler"`
}

func (c *Config) SetDefaults() {
	c.Listen = defaultListen
	c.LogLevel = LogLevelInfo
	c.DownloadDir = defaultDownloadDir
	c.Extractor.InfoTimeout = defaultInfoTimeout
	c.Extractor.InfoRate = defaultInfoRate
	c.Extractor.InfoBurst = defaultInfoBurst
	c.Worker.Workers = defaultWorkers
	c.Worker.ShutdownTimeout = defaultShutdownTimeout
	c.Registry.SweepInterval = defaultSweepInterval
	c.Registry.DumpFileName = defaultDumpFileName
	c.Handler.CORSOrigins = []string{"*"}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("listen must be set"))
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		errs = append(errs, fmt.Errorf("unknown log level: %s", c.LogLevel))
	}

	if c.DownloadDir == "" {
		errs = append(errs, fmt.Errorf("download_dir must be set"))
	}

	if c.Worker.Workers < 1 {
		errs = append(errs, fmt.Errorf("worker.workers must be at least 1, got %d", c.Worker.Workers))
	}

	if c.Worker.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("worker.shutdown_timeout must be positive"))
	}

	if c.Extractor.InfoRate < 0 {
		errs = append(errs, fmt.Errorf("extractor.info_rate must not be negative"))
	}

	if c.Extractor.InfoRate > 0 && c.Extractor.InfoBurst < 1 {
		errs = append(errs, fmt.Errorf("extractor.info_burst must be at least 1 when info_rate is set"))
	}

	if c.Registry.TTL < 0 {
		errs = append(errs, fmt.Errorf("registry.ttl must not be negative"))
	}

	if c.Registry.TTL > 0 && c.Registry.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("registry.sweep_interval must be positive when ttl is set"))
	}

	return errors.Join(errs...)
}

// Load reads defaults, then the yaml file (if present), then .env and the
// environment. PORT is honoured for platforms that only provide a port.
func Load(fs afero.Fs, fileName string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if fileName != "" {
		data, err := afero.ReadFile(fs, fileName)
		switch {
		case err == nil:
			if err := yaml.UnmarshalStrict(data, cfg); err != nil {
				return nil, fmt.Errorf("cannot parse config file %s: %w", fileName, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("cannot read config file %s: %w", fileName, err)
		}
	}

	if err := godotenv.Load(EnvDotFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("cannot load %s: %w", EnvDotFile, err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse environment: %w", err)
	}

	if port := os.Getenv(EnvPort); port != "" && os.Getenv(EnvPrefix+"_LISTEN") == "" {
		cfg.Listen = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func MustLoad(fileName string) *Config {
	cfg, err := Load(afero.NewOsFs(), fileName)
	if err != nil {
		panic(err)
	}

	return cfg
}
