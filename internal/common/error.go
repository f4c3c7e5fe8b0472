package common

import "fmt"

var (
	ErrMissingID          = fmt.Errorf("missing required field: id")
	ErrUnknownMediaType   = fmt.Errorf("missing media type and cannot determine it from record")
	ErrNoMediaURLs        = fmt.Errorf("no media urls found")
	ErrInvalidURL         = fmt.Errorf("invalid media url")
	ErrRetriesExhausted   = fmt.Errorf("retries exhausted")
	ErrHistoryUnavailable = fmt.Errorf("history repository unavailable")
)

// StatusError is a non-success HTTP response observed by the fetcher. The
// retry policy keys off Code.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d for %s", e.Code, e.URL)
}
