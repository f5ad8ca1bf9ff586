// Command apiserver runs the diarization review service: audio upload and
// storage, asynchronous diarization through pyannote.ai, human scoring,
// and the confidence range-query API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Heimeroux/pyannote-api-toolkit/confidence"
	"github.com/Heimeroux/pyannote-api-toolkit/config"
	"github.com/Heimeroux/pyannote-api-toolkit/logger"
	"github.com/Heimeroux/pyannote-api-toolkit/observability"
	"github.com/Heimeroux/pyannote-api-toolkit/pyannote"
	"github.com/Heimeroux/pyannote-api-toolkit/server"
	"github.com/Heimeroux/pyannote-api-toolkit/server/api"
	"github.com/Heimeroux/pyannote-api-toolkit/service"
	"github.com/Heimeroux/pyannote-api-toolkit/storage"
	_ "github.com/Heimeroux/pyannote-api-toolkit/storage/local"
	_ "github.com/Heimeroux/pyannote-api-toolkit/storage/s3"
	"github.com/Heimeroux/pyannote-api-toolkit/store"
	"github.com/Heimeroux/pyannote-api-toolkit/util"
)

const serviceName = "apiserver"

// Config is the full apiserver configuration tree.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server   server.Config              `yaml:"server" mapstructure:"server"`
	Store    store.Config               `yaml:"store" mapstructure:"store"`
	Storage  storage.Config             `yaml:"storage" mapstructure:"storage"`
	Pyannote pyannote.Config            `yaml:"pyannote" mapstructure:"pyannote"`
	Tracing  observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`

	// JobRetention is how long completed job references are kept before
	// the maintenance sweep clears them.
	JobRetention time.Duration `yaml:"job_retention" mapstructure:"job_retention"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := config.LoadConfig(serviceName, &cfg); err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	cfg.Server.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Server.Validate(); err != nil {
		return err
	}

	logger.Init(cfg.Logging)
	log := logger.GetGlobalLogger()

	log.Info("Starting service", map[string]interface{}{
		"service":     cfg.Name,
		"environment": cfg.Environment,
		"version":     cfg.Version,
		"api_token":   util.MaskSecret(cfg.Pyannote.Token, 4),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		cfg.Tracing.ServiceName = cfg.Name
		cfg.Tracing.ServiceVersion = cfg.Version
		cfg.Tracing.Environment = cfg.Environment
		cfg.Tracing.ApplyDefaults()
		tp, err := observability.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Warn("Tracer shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	records, err := store.Open(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer records.Close()

	blobs, err := storage.New(cfg.Storage, nil, log)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	diarizer, err := pyannote.NewClient(cfg.Pyannote, log)
	if err != nil {
		return fmt.Errorf("init pyannote client: %w", err)
	}

	var opts []service.Option
	if cfg.JobRetention > 0 {
		opts = append(opts, service.WithJobRetention(cfg.JobRetention))
	}
	manager := service.NewManager(records, blobs, diarizer, log, opts...)
	engine := confidence.NewEngine(records)

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	api.NewHandler(manager, engine, diarizer.SigningSecret(), log).Register(srv.GinEngine())

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.Background())
}
