// Package history tracks content ids that finished downloading, so repeated
// batch runs can skip work that already produced files. The redis-backed
// repository survives restarts; the in-memory one covers single runs and
// tests.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jgivc/mediafetch/internal/common"
)

const (
	keyHistory   = "mf:history" // HASH. content_id -> newline-joined file list.
	keySeparator = "\n"

	pingTimeout = 5 * time.Second
)

// Repository records completed downloads per content id.
type Repository interface {
	// Seen reports whether the id has a recorded completion.
	Seen(ctx context.Context, id string) (bool, error)
	// Record stores the files a completed download produced.
	Record(ctx context.Context, id string, files []string) error
	// Files returns the recorded files for an id.
	Files(ctx context.Context, id string) ([]string, error)
}

type historyRepository struct {
	cl  *redis.Client
	log *slog.Logger
}

func NewHistoryRepository(cl *redis.Client, log *slog.Logger) (*historyRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := cl.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrHistoryUnavailable, err)
	}

	return &historyRepository{
		cl:  cl,
		log: log.With(slog.String("item", "HistoryRepository")),
	}, nil
}

func (r *historyRepository) Seen(ctx context.Context, id string) (bool, error) {
	exists, err := r.cl.HExists(ctx, keyHistory, id).Result()
	if err != nil {
		return false, fmt.Errorf("cannot check history for %s: %w", id, err)
	}

	return exists, nil
}

func (r *historyRepository) Record(ctx context.Context, id string, files []string) error {
	if _, err := r.cl.HSet(ctx, keyHistory, id, strings.Join(files, keySeparator)).Result(); err != nil {
		return fmt.Errorf("cannot record history for %s: %w", id, err)
	}

	return nil
}

func (r *historyRepository) Files(ctx context.Context, id string) ([]string, error) {
	val, err := r.cl.HGet(ctx, keyHistory, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("cannot get history for %s: %w", id, err)
	}

	if val == "" {
		return nil, nil
	}

	return strings.Split(val, keySeparator), nil
}
