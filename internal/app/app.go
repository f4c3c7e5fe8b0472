package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jgivc/mediafetch/internal/adapter/preview"
	"github.com/jgivc/mediafetch/internal/config"
	"github.com/jgivc/mediafetch/internal/dispatch"
	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/fetch"
	"github.com/jgivc/mediafetch/internal/naming"
	"github.com/jgivc/mediafetch/internal/progress"
	"github.com/jgivc/mediafetch/internal/repository/history"
	"github.com/jgivc/mediafetch/internal/service/batch"
	"github.com/jgivc/mediafetch/internal/service/download"
)

type App struct {
	cfgPath string
	cfg     *config.Config
	batch   *batch.Service
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	log := a.buildLogger()
	a.log = log

	fs := afero.NewOsFs()
	workers := a.cfg.EffectiveWorkers()

	fetcher := fetch.New(a.cfg.SkipExisting, log)
	dispatcher := dispatch.New(log)
	renderer := preview.New(log)
	namer := naming.New(a.cfg.UseDescription)

	dl := download.NewService(fs, download.Config{
		RootDir:    a.cfg.DownloadDir,
		Workers:    workers,
		MaxRetries: a.cfg.MaxRetries,
	}, fetcher, dispatcher, renderer, namer, log)

	a.batch = batch.NewService(dl, a.buildHistory(log), workers, log)

	log.Info("Application started", slog.String("download_dir", a.cfg.DownloadDir),
		slog.Int("workers", workers))
}

// Run loads records from a JSON file and downloads them all.
func (a *App) Run(ctx context.Context, recordsPath string) (*entity.BatchResult, error) {
	recs, err := LoadRecords(afero.NewOsFs(), recordsPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load records: %w", err)
	}

	a.log.Info("Records loaded", slog.String("path", recordsPath), slog.Int("count", len(recs)))

	obs := progress.Func(func(current, total int) {
		a.log.Info("Batch progress", slog.Int("completed", current), slog.Int("total", total))
	})

	return a.batch.Run(ctx, recs, obs), nil
}

func (a *App) buildLogger() *slog.Logger {
	var w io.Writer = os.Stderr
	if a.cfg.Log.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   a.cfg.Log.File,
			MaxSize:    a.cfg.Log.MaxSizeMB,
			MaxBackups: a.cfg.Log.MaxBackups,
		})
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: a.cfg.Log.SlogLevel(),
	}))
}

// buildHistory prefers redis when configured, falling back to the in-memory
// store so an unreachable redis never blocks downloads.
func (a *App) buildHistory(log *slog.Logger) history.Repository {
	if a.cfg.History.RedisURL == "" {
		return history.NewInMemoryRepository()
	}

	opt, err := redis.ParseURL(a.cfg.History.RedisURL)
	if err != nil {
		panic(fmt.Sprintf("invalid redis url: %v", err))
	}

	repo, err := history.NewHistoryRepository(redis.NewClient(opt), log)
	if err != nil {
		log.Warn("History store unavailable, using in-memory history", slog.Any("error", err))

		return history.NewInMemoryRepository()
	}

	return repo
}

// LoadRecords decodes a JSON file holding either an array of content records
// or a single record object.
func LoadRecords(fs afero.Fs, path string) ([]*entity.ContentRecord, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read records file: %w", err)
	}

	var recs []*entity.ContentRecord
	if err := json.Unmarshal(data, &recs); err == nil {
		return recs, nil
	}

	var rec entity.ContentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("cannot parse records file: %w", err)
	}

	return []*entity.ContentRecord{&rec}, nil
}
