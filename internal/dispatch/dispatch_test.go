package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/progress"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeTasks(n int) []entity.DownloadTask {
	tasks := make([]entity.DownloadTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, entity.DownloadTask{
			URL:   fmt.Sprintf("https://cdn.example.com/a%d.jpg", i),
			Index: i,
		})
	}

	return tasks
}

func TestRunExecutesAllTasks(t *testing.T) {
	d := New(testLogger())

	var mu sync.Mutex
	seen := make(map[int]bool)

	results := d.Run(context.Background(), makeTasks(10), 4,
		func(_ context.Context, task entity.DownloadTask) (string, error) {
			mu.Lock()
			seen[task.Index] = true
			mu.Unlock()

			return fmt.Sprintf("/out/%d", task.Index), nil
		}, nil)

	require.Len(t, results, 10)
	require.Len(t, seen, 10)

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	for i, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, i, r.Index)
		require.Equal(t, fmt.Sprintf("/out/%d", i), r.Path)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	d := New(testLogger())

	const workers = 3
	var current, peak int32

	d.Run(context.Background(), makeTasks(20), workers,
		func(_ context.Context, _ entity.DownloadTask) (string, error) {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&current, -1)

			return "", nil
		}, nil)

	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
	require.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestRunCollectsErrors(t *testing.T) {
	d := New(testLogger())
	boom := errors.New("boom")

	results := d.Run(context.Background(), makeTasks(4), 2,
		func(_ context.Context, task entity.DownloadTask) (string, error) {
			if task.Index%2 == 0 {
				return "", boom
			}

			return "/ok", nil
		}, nil)

	var failed, ok int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			ok++
		}
	}

	require.Equal(t, 2, failed)
	require.Equal(t, 2, ok)
}

func TestRunIsolatesPanics(t *testing.T) {
	d := New(testLogger())

	results := d.Run(context.Background(), makeTasks(3), 3,
		func(_ context.Context, task entity.DownloadTask) (string, error) {
			if task.Index == 1 {
				panic("bad task")
			}

			return "/ok", nil
		}, nil)

	require.Len(t, results, 3)

	var panicked int
	for _, r := range results {
		if r.Err != nil {
			require.Contains(t, r.Err.Error(), "task panic")
			panicked++
		}
	}
	require.Equal(t, 1, panicked)
}

func TestRunCancelledContext(t *testing.T) {
	d := New(testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var executed int32
	results := d.Run(ctx, makeTasks(5), 2,
		func(_ context.Context, _ entity.DownloadTask) (string, error) {
			atomic.AddInt32(&executed, 1)

			return "/ok", nil
		}, nil)

	require.Len(t, results, 5)
	require.Zero(t, atomic.LoadInt32(&executed))
	for _, r := range results {
		require.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestRunCancelledBetweenBatches(t *testing.T) {
	d := New(testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var updates [][2]int

	var executed int32
	results := d.Run(ctx, makeTasks(120), 4,
		func(_ context.Context, _ entity.DownloadTask) (string, error) {
			if atomic.AddInt32(&executed, 1) == 1 {
				cancel()
			}

			return "/ok", nil
		},
		progress.Func(func(current, total int) {
			mu.Lock()
			updates = append(updates, [2]int{current, total})
			mu.Unlock()
		}))

	require.Len(t, results, 120)
	require.LessOrEqual(t, atomic.LoadInt32(&executed), int32(20))

	cancelled := 0
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	require.GreaterOrEqual(t, cancelled, 100)

	require.NotEmpty(t, updates)
	require.Equal(t, [2]int{120, 120}, updates[len(updates)-1])
}

func TestRunReportsProgress(t *testing.T) {
	d := New(testLogger())

	var mu sync.Mutex
	var updates [][2]int

	d.Run(context.Background(), makeTasks(4), 1,
		func(_ context.Context, _ entity.DownloadTask) (string, error) {
			return "/ok", nil
		},
		progress.Func(func(current, total int) {
			mu.Lock()
			updates = append(updates, [2]int{current, total})
			mu.Unlock()
		}))

	require.NotEmpty(t, updates)
	require.Equal(t, [2]int{4, 4}, updates[len(updates)-1])
}

func TestRunEmptyTaskSet(t *testing.T) {
	d := New(testLogger())

	results := d.Run(context.Background(), nil, 4,
		func(_ context.Context, _ entity.DownloadTask) (string, error) {
			return "", nil
		}, nil)

	require.Nil(t, results)
}
