package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/fetch"
	"github.com/jgivc/mediafetch/internal/media"
	"github.com/jgivc/mediafetch/internal/progress"
)

// runTasks executes a record's tasks, through the worker pool when
// parallelism applies and sequentially otherwise. A single task gets the
// caller's observer directly so per-byte progress flows through.
func (s *Service) runTasks(ctx context.Context, baseName string, tasks []entity.DownloadTask, obs progress.Observer) []entity.DownloadResult {
	if len(tasks) == 0 {
		return nil
	}

	if len(tasks) == 1 {
		task := tasks[0]
		path, err := s.fetcher.Fetch(ctx, fetch.Request{
			URL:        task.URL,
			Dir:        task.Dir,
			BaseName:   baseName,
			Ext:        task.Ext,
			Index:      task.Index,
			Suffix:     task.Suffix,
			MaxRetries: s.cfg.MaxRetries,
			Progress:   obs,
		})

		return []entity.DownloadResult{{Index: task.Index, Suffix: task.Suffix, Path: path, Err: err}}
	}

	if s.parallelEnabled(len(tasks)) {
		return s.dispatcher.Run(ctx, tasks, s.effectiveWorkers(len(tasks)), s.taskFunc(baseName), obs)
	}

	fn := s.taskFunc(baseName)
	throttled := progress.NewThrottled(obs)
	results := make([]entity.DownloadResult, 0, len(tasks))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			results = append(results, entity.DownloadResult{Index: task.Index, Err: err})
			continue
		}

		path, err := fn(ctx, task)
		results = append(results, entity.DownloadResult{Index: task.Index, Suffix: task.Suffix, Path: path, Err: err})
		throttled.Progress(i+1, len(tasks))
	}

	return results
}

// collect folds task results into the batch result in completion order.
func collect(results []entity.DownloadResult, label string, result *entity.BatchResult) {
	for _, r := range results {
		if r.Err != nil {
			if r.Index == entity.NoIndex {
				result.AddError(fmt.Sprintf("%s: %v", label, r.Err))
			} else {
				result.AddError(fmt.Sprintf("%s %d: %v", label, r.Index, r.Err))
			}
			continue
		}
		result.AddFile(r.Path)
	}
}

func (s *Service) processVideo(ctx context.Context, rec *entity.ContentRecord, dir string, obs progress.Observer, result *entity.BatchResult) {
	valid := entity.FilterValidURLs(rec.VideoURLs)
	if len(valid) == 0 {
		s.log.Error("No video urls found for video content", slog.String("id", rec.ID))
		result.AddError("no video urls found for video content")

		return
	}

	tasks := make([]entity.DownloadTask, 0, len(valid))
	for idx, url := range valid {
		index := entity.NoIndex
		if len(valid) > 1 {
			index = idx
		}
		tasks = append(tasks, entity.DownloadTask{URL: url, Dir: dir, Ext: ".mp4", Index: index})
	}

	collect(s.runTasks(ctx, s.namer.BaseName(rec), tasks, obs), "video", result)
}

func (s *Service) processAudio(ctx context.Context, rec *entity.ContentRecord, dir string, obs progress.Observer, result *entity.BatchResult) {
	valid := entity.FilterValidURLs(rec.AudioURLs)
	if len(valid) == 0 {
		// Audio-only platforms sometimes deliver the track as a music url.
		valid = entity.FilterValidURLs(rec.MusicURLs)
	}
	if len(valid) == 0 {
		s.log.Error("No audio urls found for audio content", slog.String("id", rec.ID))
		result.AddError("no audio urls found for audio content")

		return
	}

	tasks := make([]entity.DownloadTask, 0, len(valid))
	for idx, url := range valid {
		index := entity.NoIndex
		if len(valid) > 1 {
			index = idx
		}
		tasks = append(tasks, entity.DownloadTask{
			URL:   url,
			Dir:   dir,
			Ext:   media.ResolveExtension(url, ".mp3", ""),
			Index: index,
		})
	}

	collect(s.runTasks(ctx, s.namer.BaseName(rec), tasks, obs), "audio", result)
}

func (s *Service) processImage(ctx context.Context, rec *entity.ContentRecord, dir string, obs progress.Observer, result *entity.BatchResult) {
	valid := entity.FilterValidURLs(rec.ImageURLs)
	if len(valid) == 0 {
		s.log.Error("No image urls found for image content", slog.String("id", rec.ID))
		result.AddError("no image urls found for image content")

		return
	}

	baseName := s.namer.BaseName(rec)

	if len(valid) == 1 {
		url := valid[0]
		task := entity.DownloadTask{
			URL:   url,
			Dir:   dir,
			Ext:   media.ResolveExtension(url, ".jpg", ""),
			Index: entity.NoIndex,
		}
		collect(s.runTasks(ctx, baseName, []entity.DownloadTask{task}, obs), "image", result)

		return
	}

	// A multi-image item becomes an album: its own subfolder, index-ordered
	// files and an HTML gallery.
	albumDir := filepath.Join(dir, baseName)
	if err := s.fs.MkdirAll(albumDir, 0o755); err != nil {
		result.AddError(fmt.Sprintf("cannot create album directory: %v", err))

		return
	}

	tasks := make([]entity.DownloadTask, 0, len(valid))
	for idx, url := range valid {
		tasks = append(tasks, entity.DownloadTask{
			URL:   url,
			Dir:   albumDir,
			Ext:   media.ResolveExtension(url, ".jpg", ""),
			Index: idx,
		})
	}

	results := s.runTasks(ctx, baseName, tasks, obs)
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	collect(results, "image", result)

	s.log.Info("Album download completed", slog.String("id", rec.ID),
		slog.Int("downloaded", len(result.Files)), slog.Int("total", len(valid)))

	if len(result.Files) > 0 {
		s.writePreviewArtifacts(albumDir, rec, result, false, nil)
	}
}

func (s *Service) processMixed(ctx context.Context, rec *entity.ContentRecord, dir string, obs progress.Observer, result *entity.BatchResult) {
	totalRaw := len(rec.VideoURLs) + len(rec.ImageURLs) + len(rec.AudioURLs)
	if rec.MusicID != "" {
		totalRaw += len(rec.MusicURLs)
	}
	if totalRaw == 0 {
		s.log.Error("No media urls found in mixed content", slog.String("id", rec.ID))
		result.AddError("no media urls found in mixed content")

		return
	}

	baseName := s.namer.BaseName(rec)
	mixedDir := filepath.Join(dir, baseName)
	if err := s.fs.MkdirAll(mixedDir, 0o755); err != nil {
		result.AddError(fmt.Sprintf("cannot create mixed content directory: %v", err))

		return
	}

	tasks := mixedTasks(rec, mixedDir)
	if len(tasks) == 0 {
		s.log.Warn("No valid media urls found in mixed content", slog.String("id", rec.ID))

		return
	}

	// One pool across all categories so slow videos do not starve images.
	for _, r := range s.runTasks(ctx, baseName, tasks, obs) {
		if r.Err != nil {
			result.AddError(fmt.Sprintf("%s %d: %v", mixedLabel(r), r.Index, r.Err))
			continue
		}
		result.AddFile(r.Path)
	}

	if len(result.Files) > 0 {
		s.writePreviewArtifacts(mixedDir, rec, result, true, result.Files)
	}
}

// mixedTasks enumerates every valid asset URL of a mixed record, tagged with
// its category suffix. Music assets participate only when the record carries
// a music id. Indices keep the position in the source list.
func mixedTasks(rec *entity.ContentRecord, mixedDir string) []entity.DownloadTask {
	var tasks []entity.DownloadTask

	for idx, url := range rec.VideoURLs {
		if !entity.ValidURL(url) {
			continue
		}
		tasks = append(tasks, entity.DownloadTask{
			URL: url, Dir: mixedDir, Ext: ".mp4", Index: idx, Suffix: entity.SuffixVideo,
		})
	}

	for idx, url := range rec.ImageURLs {
		if !entity.ValidURL(url) {
			continue
		}
		tasks = append(tasks, entity.DownloadTask{
			URL: url, Dir: mixedDir, Ext: media.ResolveExtension(url, ".jpg", ""), Index: idx, Suffix: entity.SuffixImage,
		})
	}

	for idx, url := range rec.AudioURLs {
		if !entity.ValidURL(url) {
			continue
		}
		tasks = append(tasks, entity.DownloadTask{
			URL: url, Dir: mixedDir, Ext: media.ResolveExtension(url, ".mp3", ""), Index: idx, Suffix: entity.SuffixAudio,
		})
	}

	if rec.MusicID != "" {
		for idx, url := range rec.MusicURLs {
			if !entity.ValidURL(url) {
				continue
			}
			tasks = append(tasks, entity.DownloadTask{
				URL: url, Dir: mixedDir, Ext: media.ResolveExtension(url, ".mp3", ""), Index: idx, Suffix: entity.SuffixMusic,
			})
		}
	}

	return tasks
}

// mixedLabel recovers the category of a result for error messages.
func mixedLabel(r entity.DownloadResult) string {
	if r.Suffix == "" {
		return "asset"
	}

	return strings.TrimPrefix(r.Suffix, "_")
}

// writePreviewArtifacts stores the metadata sidecar and the HTML artifact
// for an album or mixed folder. Render failures are logged, never fatal.
func (s *Service) writePreviewArtifacts(dir string, rec *entity.ContentRecord, result *entity.BatchResult, mixed bool, files []string) {
	meta := s.meta(rec)

	if err := s.renderer.WriteSidecar(dir, meta); err != nil {
		s.log.Warn("Cannot write metadata sidecar", slog.String("dir", dir), slog.Any("error", err))
	}

	var (
		path string
		err  error
	)
	if mixed {
		path, err = s.renderer.RenderMixedIndex(dir, meta, files)
	} else {
		path, err = s.renderer.RenderAlbumPreview(dir, meta)
	}
	if err != nil {
		s.log.Error("Cannot render preview", slog.String("dir", dir), slog.Any("error", err))

		return
	}

	result.AddFile(path)
}
