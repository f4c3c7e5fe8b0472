// Package progress defines how the downloader reports coarse progress to
// its callers. Observers are fire-and-forget: the core never waits on them,
// and any thread marshaling (UI and the like) happens on the consumer side.
package progress

import (
	"sync"
	"time"
)

const minUpdateInterval = 100 * time.Millisecond

// Observer receives (current, total) pairs. current is monotonically
// non-decreasing within one dispatch and the final call always has
// current == total.
type Observer interface {
	Progress(current, total int)
}

// Func adapts a plain function to Observer.
type Func func(current, total int)

func (f Func) Progress(current, total int) {
	if f != nil {
		f(current, total)
	}
}

// Throttled forwards updates to an underlying observer at most once per
// 100ms, except that an update completing the scope (current >= total) is
// always delivered. Safe for concurrent use by pool workers.
type Throttled struct {
	obs  Observer
	mu   sync.Mutex
	last time.Time
}

func NewThrottled(obs Observer) *Throttled {
	return &Throttled{obs: obs}
}

func (t *Throttled) Progress(current, total int) {
	if t == nil || t.obs == nil {
		return
	}

	t.mu.Lock()
	now := time.Now()
	final := current >= total
	if !final && now.Sub(t.last) < minUpdateInterval {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()

	t.obs.Progress(current, total)
}
