// Package batch runs many independent content records through the download
// service at once. Each record is one unit of work; a bounded pool keeps the
// number of concurrently processed records in check while the per-record
// asset parallelism stays inside the download service.
package batch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/progress"
	"github.com/jgivc/mediafetch/internal/repository/history"
)

// Downloader processes one content record.
type Downloader interface {
	Download(ctx context.Context, rec *entity.ContentRecord, obs progress.Observer) *entity.BatchResult
}

type Service struct {
	downloader Downloader
	hist       history.Repository
	workers    int
	log        *slog.Logger
}

// NewService builds the orchestrator. hist may be nil; records are then
// never skipped.
func NewService(downloader Downloader, hist history.Repository, workers int, log *slog.Logger) *Service {
	if workers < 1 {
		workers = 1
	}

	return &Service{
		downloader: downloader,
		hist:       hist,
		workers:    workers,
		log:        log.With(slog.String("item", "BatchService")),
	}
}

// Run downloads every record and returns the merged outcome. Progress counts
// completed records against the total. Failures of individual records land
// in the merged error list and never stop the rest of the batch.
func (s *Service) Run(ctx context.Context, recs []*entity.ContentRecord, obs progress.Observer) *entity.BatchResult {
	merged := &entity.BatchResult{}
	if len(recs) == 0 {
		return merged
	}

	jobID := uuid.NewString()
	log := s.log.With(slog.String("job_id", jobID))
	log.Info("Batch started", slog.Int("records", len(recs)), slog.Int("workers", s.workers))

	workers := s.workers
	if workers > len(recs) {
		workers = len(recs)
	}

	in := make(chan *entity.ContentRecord, len(recs))
	out := make(chan *entity.BatchResult, len(recs))

	for _, rec := range recs {
		in <- rec
	}
	close(in)

	var wg sync.WaitGroup
	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go s.worker(ctx, n, log, in, out, &wg)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	throttled := progress.NewThrottled(obs)
	completed := 0
	for res := range out {
		merged.Merge(res)
		completed++
		throttled.Progress(completed, len(recs))
	}

	log.Info("Batch finished", slog.Int("files", len(merged.Files)),
		slog.Int("errors", len(merged.Errors)), slog.Bool("success", merged.Success))

	return merged
}

func (s *Service) worker(ctx context.Context, n int, log *slog.Logger, in <-chan *entity.ContentRecord, out chan<- *entity.BatchResult, wg *sync.WaitGroup) {
	defer wg.Done()

	log = log.With(slog.Int("worker_id", n))

	for rec := range in {
		if err := ctx.Err(); err != nil {
			res := &entity.BatchResult{}
			res.AddError(err.Error())
			out <- res

			continue
		}

		if s.skip(ctx, log, rec) {
			out <- s.skipped(ctx, log, rec)

			continue
		}

		res := s.downloader.Download(ctx, rec, nil)
		if res.Success {
			s.record(ctx, log, rec, res)
		}

		out <- res
	}
}

// skip reports whether the record already completed in an earlier run.
func (s *Service) skip(ctx context.Context, log *slog.Logger, rec *entity.ContentRecord) bool {
	if s.hist == nil || rec.ID == "" {
		return false
	}

	seen, err := s.hist.Seen(ctx, rec.ID)
	if err != nil {
		log.Warn("Cannot check history", slog.String("id", rec.ID), slog.Any("error", err))

		return false
	}

	if seen {
		log.Info("Skipping already downloaded content", slog.String("id", rec.ID))
	}

	return seen
}

// skipped builds the result for a record satisfied by an earlier run. The
// files recorded back then are reported again so the caller sees the same
// file list a fresh download would have produced.
func (s *Service) skipped(ctx context.Context, log *slog.Logger, rec *entity.ContentRecord) *entity.BatchResult {
	res := &entity.BatchResult{Success: true}

	files, err := s.hist.Files(ctx, rec.ID)
	if err != nil {
		log.Warn("Cannot read recorded files", slog.String("id", rec.ID), slog.Any("error", err))

		return res
	}

	res.Files = append(res.Files, files...)

	return res
}

func (s *Service) record(ctx context.Context, log *slog.Logger, rec *entity.ContentRecord, res *entity.BatchResult) {
	if s.hist == nil {
		return
	}

	if err := s.hist.Record(ctx, rec.ID, res.Files); err != nil {
		log.Warn("Cannot record history", slog.String("id", rec.ID), slog.Any("error", err))
	}
}
