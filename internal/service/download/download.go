// Package download routes normalized content records to per-type download
// strategies and folds their outcomes into one batch result.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jgivc/mediafetch/internal/adapter/preview"
	"github.com/jgivc/mediafetch/internal/common"
	"github.com/jgivc/mediafetch/internal/dispatch"
	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/fetch"
	"github.com/jgivc/mediafetch/internal/naming"
	"github.com/jgivc/mediafetch/internal/progress"
	"github.com/spf13/afero"
)

const serviceName = "download"

// Config is the slice of application configuration this service needs.
type Config struct {
	// RootDir is the download root; per-record folders are created below it.
	RootDir string
	// Workers bounds concurrent transfers per dispatch. Values below 2
	// disable parallelism.
	Workers int
	// MaxRetries bounds attempts per asset. Values below 1 select the
	// fetcher default.
	MaxRetries int
}

// Service implements the content router.
type Service struct {
	fs         afero.Fs
	cfg        Config
	fetcher    *fetch.Fetcher
	dispatcher *dispatch.Dispatcher
	renderer   *preview.Renderer
	namer      *naming.Namer
	log        *slog.Logger
}

func NewService(fs afero.Fs, cfg Config, fetcher *fetch.Fetcher, dispatcher *dispatch.Dispatcher,
	renderer *preview.Renderer, namer *naming.Namer, log *slog.Logger) *Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = fetch.DefaultMaxRetries
	}

	return &Service{
		fs:         fs,
		cfg:        cfg,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		renderer:   renderer,
		namer:      namer,
		log:        log.With(slog.String("service", serviceName)),
	}
}

// Download routes one record to its media type strategy and returns the
// aggregated result. Failures stay local to the asset that produced them;
// the result is successful iff at least one file was produced. obs may be
// nil and always receives a final current == total update.
func (s *Service) Download(ctx context.Context, rec *entity.ContentRecord, obs progress.Observer) *entity.BatchResult {
	result := &entity.BatchResult{}

	if err := rec.Validate(); err != nil {
		s.log.Error("Rejecting record", slog.Any("error", err))
		result.AddError(err.Error())

		return result
	}

	mediaType := rec.MediaType
	if mediaType == entity.MediaTypeUnset {
		detected, err := detectMediaType(rec)
		if err != nil {
			s.log.Error("Cannot determine media type", slog.String("id", rec.ID), slog.Any("error", err))
			result.AddError(err.Error())

			return result
		}
		mediaType = detected
		rec.MediaType = detected
	}

	outputDir := s.cfg.RootDir
	if authorDir := s.namer.AuthorDir(rec); authorDir != "" {
		outputDir = filepath.Join(outputDir, authorDir)
	}
	if err := s.fs.MkdirAll(outputDir, 0o755); err != nil {
		result.AddError(fmt.Sprintf("cannot create output directory: %v", err))

		return result
	}

	switch mediaType {
	case entity.MediaTypeVideo:
		s.processVideo(ctx, rec, outputDir, obs, result)
	case entity.MediaTypeImage:
		s.processImage(ctx, rec, outputDir, obs, result)
	case entity.MediaTypeAudio:
		s.processAudio(ctx, rec, outputDir, obs, result)
	case entity.MediaTypeMixed:
		s.processMixed(ctx, rec, outputDir, obs, result)
	default:
		result.AddError(fmt.Sprintf("unsupported media type: %s", mediaType))

		return result
	}

	result.Success = len(result.Files) > 0

	if obs != nil {
		obs.Progress(100, 100)
	}

	return result
}

// detectMediaType infers the media type from URL list population, falling
// back to per-platform heuristics.
func detectMediaType(rec *entity.ContentRecord) (entity.MediaType, error) {
	var present []entity.MediaType
	if len(rec.VideoURLs) > 0 {
		present = append(present, entity.MediaTypeVideo)
	}
	if len(rec.ImageURLs) > 0 {
		present = append(present, entity.MediaTypeImage)
	}
	if len(rec.AudioURLs) > 0 {
		present = append(present, entity.MediaTypeAudio)
	}

	switch len(present) {
	case 1:
		return present[0], nil
	default:
		if len(present) > 1 {
			return entity.MediaTypeMixed, nil
		}
	}

	switch strings.ToLower(rec.Platform) {
	case "tiktok", "douyin":
		return entity.MediaTypeVideo, nil
	case "xiaohongshu":
		return entity.MediaTypeMixed, nil
	case "bilibili":
		if len(rec.MusicURLs) > 0 {
			return entity.MediaTypeAudio, nil
		}
	}

	return entity.MediaTypeUnset, common.ErrUnknownMediaType
}

// meta builds the preview metadata for a record.
func (s *Service) meta(rec *entity.ContentRecord) preview.Meta {
	return preview.Meta{
		Name:        s.namer.BaseName(rec),
		ID:          rec.ID,
		Platform:    rec.Platform,
		Author:      rec.AuthorName,
		Description: rec.Description,
	}
}

// taskFunc adapts the fetcher to the dispatcher for one record.
func (s *Service) taskFunc(baseName string) dispatch.TaskFunc {
	return func(ctx context.Context, task entity.DownloadTask) (string, error) {
		return s.fetcher.Fetch(ctx, fetch.Request{
			URL:        task.URL,
			Dir:        task.Dir,
			BaseName:   baseName,
			Ext:        task.Ext,
			Index:      task.Index,
			Suffix:     task.Suffix,
			MaxRetries: s.cfg.MaxRetries,
		})
	}
}

// parallelEnabled reports whether a dispatch of n assets goes through the
// worker pool.
func (s *Service) parallelEnabled(n int) bool {
	return n > 1 && s.cfg.Workers > 1
}

func (s *Service) effectiveWorkers(n int) int {
	if n < s.cfg.Workers {
		return n
	}

	return s.cfg.Workers
}
