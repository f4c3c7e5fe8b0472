package batch

import (
	"context"
	"io"
	"log/slog"
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

type fakeDownloader struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*entity.BatchResult
	delay   time.Duration

	current, peak int32
}

func (d *fakeDownloader) Download(_ context.Context, rec *entity.ContentRecord, _ progress.Observer) *entity.BatchResult {
	n := atomic.AddInt32(&d.current, 1)
	for {
		p := atomic.LoadInt32(&d.peak)
		if n <= p || atomic.CompareAndSwapInt32(&d.peak, p, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	atomic.AddInt32(&d.current, -1)

	d.mu.Lock()
	d.calls = append(d.calls, rec.ID)
	d.mu.Unlock()

	if res, ok := d.results[rec.ID]; ok {
		return res
	}

	res := &entity.BatchResult{}
	res.AddFile("/out/" + rec.ID)

	return res
}

type fakeHistory struct {
	mu       sync.Mutex
	seen     map[string]bool
	recorded map[string][]string
}

func newFakeHistory(seen ...string) *fakeHistory {
	h := &fakeHistory{seen: make(map[string]bool), recorded: make(map[string][]string)}
	for _, id := range seen {
		h.seen[id] = true
	}

	return h
}

func (h *fakeHistory) Seen(_ context.Context, id string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.seen[id], nil
}

func (h *fakeHistory) Record(_ context.Context, id string, files []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded[id] = files

	return nil
}

func (h *fakeHistory) Files(_ context.Context, id string) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.recorded[id], nil
}

func records(ids ...string) []*entity.ContentRecord {
	recs := make([]*entity.ContentRecord, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, &entity.ContentRecord{ID: id})
	}

	return recs
}

func TestRunMergesResults(t *testing.T) {
	failed := &entity.BatchResult{}
	failed.AddError("video 0: boom")

	dl := &fakeDownloader{results: map[string]*entity.BatchResult{"r2": failed}}
	s := NewService(dl, nil, 2, testLogger())

	res := s.Run(context.Background(), records("r1", "r2", "r3"), nil)

	require.True(t, res.Success)
	require.Len(t, res.Files, 2)
	require.Equal(t, []string{"video 0: boom"}, res.Errors)
	require.Len(t, dl.calls, 3)
}

func TestRunAllFailed(t *testing.T) {
	failed := &entity.BatchResult{}
	failed.AddError("nope")

	dl := &fakeDownloader{results: map[string]*entity.BatchResult{"r1": failed}}
	s := NewService(dl, nil, 1, testLogger())

	res := s.Run(context.Background(), records("r1"), nil)

	require.False(t, res.Success)
	require.Empty(t, res.Files)
}

func TestRunSkipsSeenRecords(t *testing.T) {
	dl := &fakeDownloader{}
	hist := newFakeHistory("r2")
	s := NewService(dl, hist, 1, testLogger())

	res := s.Run(context.Background(), records("r1", "r2"), nil)

	require.True(t, res.Success)
	require.Equal(t, []string{"r1"}, dl.calls)
}

func TestRunAllSkippedIsSuccess(t *testing.T) {
	dl := &fakeDownloader{}
	hist := newFakeHistory("r1", "r2")
	hist.recorded["r1"] = []string{"/out/r1.mp4"}
	hist.recorded["r2"] = []string{"/out/r2/r2_001.jpg", "/out/r2/preview.html"}
	s := NewService(dl, hist, 2, testLogger())

	res := s.Run(context.Background(), records("r1", "r2"), nil)

	require.True(t, res.Success)
	require.Empty(t, res.Errors)
	require.ElementsMatch(t, []string{"/out/r1.mp4", "/out/r2/r2_001.jpg", "/out/r2/preview.html"}, res.Files)
	require.Empty(t, dl.calls)
}

func TestRunRecordsHistory(t *testing.T) {
	dl := &fakeDownloader{}
	hist := newFakeHistory()
	s := NewService(dl, hist, 1, testLogger())

	s.Run(context.Background(), records("r1"), nil)

	require.Equal(t, []string{"/out/r1"}, hist.recorded["r1"])
}

func TestRunDoesNotRecordFailures(t *testing.T) {
	failed := &entity.BatchResult{}
	failed.AddError("nope")

	dl := &fakeDownloader{results: map[string]*entity.BatchResult{"r1": failed}}
	hist := newFakeHistory()
	s := NewService(dl, hist, 1, testLogger())

	s.Run(context.Background(), records("r1"), nil)

	require.Empty(t, hist.recorded)
}

func TestRunBoundsWorkers(t *testing.T) {
	dl := &fakeDownloader{delay: 10 * time.Millisecond}
	s := NewService(dl, nil, 2, testLogger())

	s.Run(context.Background(), records("a", "b", "c", "d", "e", "f"), nil)

	require.LessOrEqual(t, atomic.LoadInt32(&dl.peak), int32(2))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dl := &fakeDownloader{}
	s := NewService(dl, nil, 2, testLogger())

	res := s.Run(ctx, records("r1", "r2"), nil)

	require.False(t, res.Success)
	require.Len(t, res.Errors, 2)
	require.Empty(t, dl.calls)
}

func TestRunEmptyBatch(t *testing.T) {
	s := NewService(&fakeDownloader{}, nil, 2, testLogger())

	res := s.Run(context.Background(), nil, nil)

	require.False(t, res.Success)
	require.Empty(t, res.Files)
	require.Empty(t, res.Errors)
}

func TestRunReportsProgress(t *testing.T) {
	dl := &fakeDownloader{}
	s := NewService(dl, nil, 1, testLogger())

	var mu sync.Mutex
	var last [2]int
	obs := progress.Func(func(current, total int) {
		mu.Lock()
		last = [2]int{current, total}
		mu.Unlock()
	})

	s.Run(context.Background(), records("r1", "r2", "r3"), obs)

	require.Equal(t, [2]int{3, 3}, last)
}
