// Package fetch streams single remote assets to disk with retry, backoff and
// partial-download resume. Each transfer owns its `{final}.part` temp file
// exclusively; nothing here shares mutable state between tasks.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jgivc/mediafetch/internal/common"
	"github.com/jgivc/mediafetch/internal/entity"
	"github.com/jgivc/mediafetch/internal/media"
	"github.com/jgivc/mediafetch/internal/naming"
	"github.com/jgivc/mediafetch/internal/progress"
	"github.com/spf13/afero"
)

const (
	tempSuffix = ".part"

	// DefaultMaxRetries bounds attempts per asset when the caller does not
	// say otherwise.
	DefaultMaxRetries = 3

	progressTotal = 100
)

// Request describes one asset transfer.
type Request struct {
	URL      string
	Dir      string
	BaseName string
	// Ext is the assumed extension; corrected from the response content
	// type once headers arrive.
	Ext string
	// Index is entity.NoIndex for single-asset items.
	Index  int
	Suffix string
	// MaxRetries <= 0 means DefaultMaxRetries.
	MaxRetries int
	// Progress may be nil. Updates arrive as (percent, 100).
	Progress progress.Observer
}

// Fetcher downloads assets resumably. Safe for concurrent use; every Fetch
// call works only on its own files.
type Fetcher struct {
	fs           afero.Fs
	skipExisting bool
	videoClient  *http.Client
	otherClient  *http.Client
	log          *slog.Logger
}

func New(skipExisting bool, log *slog.Logger) *Fetcher {
	return NewWithFS(afero.NewOsFs(), skipExisting, log)
}

func NewWithFS(fs afero.Fs, skipExisting bool, log *slog.Logger) *Fetcher {
	return &Fetcher{
		fs:           fs,
		skipExisting: skipExisting,
		videoClient:  newClient(media.Timeouts(".mp4")),
		otherClient:  newClient(media.Timeouts(".jpg")),
		log:          log.With(slog.String("item", "Fetcher")),
	}
}

func newClient(connect, read time.Duration) *http.Client {
	return &http.Client{
		Timeout: read,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
			TLSHandshakeTimeout: connect,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}

func (f *Fetcher) client(ext string) *http.Client {
	if media.IsVideoExt(ext) {
		return f.videoClient
	}

	return f.otherClient
}

// Fetch streams one asset to its final path and returns that path. A nil
// error means the file exists on disk afterwards (or already existed under
// the skip-existing policy).
func (f *Fetcher) Fetch(ctx context.Context, req Request) (string, error) {
	if !entity.ValidURL(req.URL) {
		f.log.Error("Invalid media url", slog.String("url", req.URL))

		return "", fmt.Errorf("%w: %q", common.ErrInvalidURL, req.URL)
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	ext := req.Ext
	finalPath := filepath.Join(req.Dir, naming.FileName(req.BaseName, req.Index, req.Suffix, ext))

	if f.skipExisting {
		if ok, _ := afero.Exists(f.fs, finalPath); ok {
			f.log.Info("Skipping existing file", slog.String("path", finalPath))

			return finalPath, nil
		}
	}

	if err := f.fs.MkdirAll(req.Dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create target directory: %w", err)
	}

	obs := progress.NewThrottled(req.Progress)
	obs.Progress(0, progressTotal)

	tempPath := finalPath + tempSuffix
	resumeOffset := f.tempSize(tempPath)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		// A cancelled call leaves the temp file for a later resume.
		if err := ctx.Err(); err != nil {
			return "", err
		}

		status, err := f.attempt(ctx, req.URL, &finalPath, &tempPath, &ext, resumeOffset, attempt, obs)
		if err == nil {
			obs.Progress(progressTotal, progressTotal)

			return finalPath, nil
		}
		lastErr = err

		var delay time.Duration
		switch {
		case status == http.StatusTooManyRequests:
			delay = retryDelay(attempt, delayRateLimited, jitterRateLimited)
			f.log.Warn("Rate limited", slog.String("url", req.URL),
				slog.Duration("retry_in", delay), slog.Int("attempt", attempt+1), slog.Int("max", maxRetries))
		case status == http.StatusGatewayTimeout:
			delay = retryDelay(attempt, delayGateway, 0)
			f.log.Warn("Gateway timeout", slog.String("url", req.URL),
				slog.Duration("retry_in", delay), slog.Int("attempt", attempt+1), slog.Int("max", maxRetries))
		case status >= 500 && status < 600:
			delay = retryDelay(attempt, delayServer, 0)
			f.log.Warn("Server error", slog.Int("status", status), slog.String("url", req.URL),
				slog.Duration("retry_in", delay), slog.Int("attempt", attempt+1), slog.Int("max", maxRetries))
		case status != 0:
			// Any other status is permanent.
			f.log.Error("HTTP error, not retrying", slog.Int("status", status), slog.String("url", req.URL))
			f.removeTemp(tempPath)

			return "", err
		case isTimeout(err):
			resumeOffset = f.tempSize(tempPath)
			delay = retryDelay(attempt, delayTimeout, jitterTimeout)
			f.log.Warn("Timeout", slog.String("url", req.URL), slog.Any("error", err),
				slog.Duration("retry_in", delay), slog.Int("attempt", attempt+1), slog.Int("max", maxRetries))
		case isTransient(err):
			resumeOffset = f.tempSize(tempPath)
			delay = retryDelay(attempt, delayNetwork, jitterNetwork)
			f.log.Warn("Network error", slog.String("url", req.URL), slog.Any("error", err),
				slog.Duration("retry_in", delay), slog.Int("attempt", attempt+1), slog.Int("max", maxRetries))
		default:
			// Filesystem trouble or another unexpected failure.
			f.log.Error("Unexpected error downloading media", slog.String("url", req.URL), slog.Any("error", err))
			f.removeTemp(tempPath)

			return "", err
		}

		if attempt+1 < maxRetries {
			if err := sleep(ctx, delay); err != nil {
				return "", err
			}
		}
	}

	f.log.Error("Failed to download media", slog.String("url", req.URL), slog.Int("attempts", maxRetries))
	f.removeTemp(tempPath)

	return "", fmt.Errorf("%w after %d attempts: %v", common.ErrRetriesExhausted, maxRetries, lastErr)
}

// attempt performs one request/stream cycle. It returns the observed HTTP
// status for retry classification when the response was not a success; 0
// status with a non-nil error means a transport or filesystem failure.
// finalPath, tempPath and ext are updated in place when the response content
// type corrects the assumed extension.
func (f *Fetcher) attempt(ctx context.Context, url string, finalPath, tempPath, ext *string, resumeOffset int64, attempt int, obs progress.Observer) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	for k, v := range defaultHeaders {
		req.Header.Set(k, v)
	}
	if resumeOffset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeOffset))
	}
	if attempt > 0 {
		req.Header.Set("User-Agent", userAgents[attempt%len(userAgents)])
	}

	resp, err := f.client(*ext).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return resp.StatusCode, &common.StatusError{Code: resp.StatusCode, URL: url}
	}

	// The live content type wins over whatever the URL suggested. Rename the
	// in-progress temp file so the final name is already correct on close.
	if detected := media.ResolveExtension(url, *ext, resp.Header.Get("Content-Type")); detected != *ext {
		dir := filepath.Dir(*finalPath)
		base := strings.TrimSuffix(filepath.Base(*finalPath), *ext)
		newFinal := filepath.Join(dir, base+detected)
		newTemp := newFinal + tempSuffix

		if ok, _ := afero.Exists(f.fs, *tempPath); ok {
			if err := f.fs.Rename(*tempPath, newTemp); err != nil {
				return 0, fmt.Errorf("cannot rename temp file: %w", err)
			}
		}

		*finalPath = newFinal
		*tempPath = newTemp
		*ext = detected
	}

	totalSize := resp.ContentLength
	if resp.StatusCode == http.StatusPartialContent {
		totalSize = totalFromContentRange(resp.Header.Get("Content-Range"), resp.ContentLength, resumeOffset)
	} else if resumeOffset > 0 {
		// Server ignored the range request; start over.
		resumeOffset = 0
	}

	if err := f.stream(resp.Body, *tempPath, *ext, resumeOffset, totalSize, obs); err != nil {
		return 0, err
	}

	if err := f.fs.Rename(*tempPath, *finalPath); err != nil {
		return 0, fmt.Errorf("cannot move temp file into place: %w", err)
	}

	return 0, nil
}

// stream appends the response body to the temp file in class-sized chunks.
func (f *Fetcher) stream(body io.Reader, tempPath, ext string, resumeOffset, totalSize int64, obs progress.Observer) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if resumeOffset > 0 {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	file, err := f.fs.OpenFile(tempPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open temp file: %w", err)
	}

	downloaded := resumeOffset
	buf := make([]byte, media.ChunkSize(ext, totalSize))

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				file.Close()

				return fmt.Errorf("cannot write temp file: %w", writeErr)
			}

			downloaded += int64(n)
			if totalSize > 0 {
				obs.Progress(percent(downloaded, totalSize), progressTotal)
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			file.Close()

			return readErr
		}
	}

	return file.Close()
}

func (f *Fetcher) tempSize(tempPath string) int64 {
	info, err := f.fs.Stat(tempPath)
	if err != nil {
		return 0
	}

	return info.Size()
}

func (f *Fetcher) removeTemp(tempPath string) {
	if ok, _ := afero.Exists(f.fs, tempPath); ok {
		if err := f.fs.Remove(tempPath); err != nil {
			f.log.Warn("Cannot remove temp file", slog.String("path", tempPath), slog.Any("error", err))
		}
	}
}

func percent(done, total int64) int {
	p := int(done * 100 / total)
	if p > 100 {
		p = 100
	}

	return p
}

// totalFromContentRange extracts the full size from a Content-Range header
// (`bytes start-end/total`), falling back to length plus offset.
func totalFromContentRange(header string, contentLength, resumeOffset int64) int64 {
	if idx := strings.LastIndex(header, "/"); idx >= 0 {
		if total, err := strconv.ParseInt(header[idx+1:], 10, 64); err == nil {
			return total
		}
	}

	if contentLength > 0 {
		return contentLength + resumeOffset
	}

	return 0
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isTransient reports whether err looks like a recoverable network or
// protocol failure rather than a local one. Filesystem failures from our own
// writes are wrapped *fs.PathError values and fall through to the
// unexpected-error branch.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return errors.Is(err, io.ErrUnexpectedEOF)
}
