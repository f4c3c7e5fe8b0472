// Package dispatch fans asset download tasks across a bounded worker pool.
// Results flow back over a channel to a single collecting goroutine, so the
// only shared state between workers is the channels themselves.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/progress"
)

const (
	// Large task sets run in fixed batches with a pause in between to keep
	// open descriptors and connection counts bounded.
	largeSetThreshold = 100
	batchSize         = 20
	batchPause        = 200 * time.Millisecond
	largeSetWorkerCap = 8
)

// TaskFunc executes one task and returns the final file path.
type TaskFunc func(ctx context.Context, task entity.DownloadTask) (string, error)

type Dispatcher struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		log: log.With(slog.String("item", "Dispatcher")),
	}
}

// Run executes all tasks with at most min(workers, len(tasks)) concurrent
// transfers and returns one result per task, in completion order. Callers
// needing positional integrity re-sort by DownloadResult.Index. obs may be
// nil; updates are throttled and the completing update is always delivered.
func (d *Dispatcher) Run(ctx context.Context, tasks []entity.DownloadTask, workers int, fn TaskFunc, obs progress.Observer) []entity.DownloadResult {
	total := len(tasks)
	if total == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}

	throttled := progress.NewThrottled(obs)
	completed := 0
	results := make([]entity.DownloadResult, 0, total)

	collect := func(rs []entity.DownloadResult) {
		for _, r := range rs {
			results = append(results, r)
			completed++
			throttled.Progress(completed, total)
		}
	}

	if total > largeSetThreshold {
		if workers > largeSetWorkerCap {
			workers = largeSetWorkerCap
		}
		d.log.Info("Processing large task set in batches",
			slog.Int("tasks", total), slog.Int("batch_size", batchSize))

		for start := 0; start < total; start += batchSize {
			end := start + batchSize
			if end > total {
				end = total
			}
			collect(d.runPool(ctx, tasks[start:end], workers, fn))

			if end < total {
				select {
				case <-ctx.Done():
					collect(cancelRemainder(tasks[end:], ctx.Err()))

					return results
				case <-time.After(batchPause):
				}
			}
		}

		return results
	}

	if workers > total {
		workers = total
	}
	collect(d.runPool(ctx, tasks, workers, fn))

	return results
}

// cancelRemainder produces one error result per task that never reached a
// pool, keeping the one-result-per-task contract when a batched run is
// cancelled between batches.
func cancelRemainder(tasks []entity.DownloadTask, err error) []entity.DownloadResult {
	results := make([]entity.DownloadResult, 0, len(tasks))
	for _, task := range tasks {
		results = append(results, entity.DownloadResult{Index: task.Index, Suffix: task.Suffix, Err: err})
	}

	return results
}

func (d *Dispatcher) runPool(ctx context.Context, tasks []entity.DownloadTask, workers int, fn TaskFunc) []entity.DownloadResult {
	if workers > len(tasks) {
		workers = len(tasks)
	}

	in := make(chan entity.DownloadTask, len(tasks))
	out := make(chan entity.DownloadResult, len(tasks))

	for _, task := range tasks {
		in <- task
	}
	close(in)

	var wg sync.WaitGroup
	wg.Add(workers)
	for n := 0; n < workers; n++ {
		go d.worker(ctx, n, in, out, &wg, fn)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	var results []entity.DownloadResult
	for r := range out {
		results = append(results, r)
	}

	return results
}

func (d *Dispatcher) worker(ctx context.Context, n int, in <-chan entity.DownloadTask, out chan<- entity.DownloadResult, wg *sync.WaitGroup, fn TaskFunc) {
	defer wg.Done()

	log := d.log.With(slog.Int("worker_id", n))

	for task := range in {
		if err := ctx.Err(); err != nil {
			out <- entity.DownloadResult{Index: task.Index, Suffix: task.Suffix, Err: err}
			continue
		}

		path, err := d.runTask(ctx, task, fn)
		if err != nil {
			log.Error("Task failed", slog.String("url", task.URL), slog.Any("error", err))
		}

		out <- entity.DownloadResult{Index: task.Index, Suffix: task.Suffix, Path: path, Err: err}
	}
}

// runTask shields sibling tasks from a panicking task function.
func (d *Dispatcher) runTask(ctx context.Context, task entity.DownloadTask, fn TaskFunc) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = fmt.Errorf("task panic: %v", r)
		}
	}()

	return fn(ctx, task)
}
