package entity

// NoIndex marks a task that names its file without a numeric suffix.
const NoIndex = -1

// Suffix tags disambiguating asset kinds inside a mixed content folder.
const (
	SuffixVideo = "_video"
	SuffixImage = "_image"
	SuffixAudio = "_audio"
	SuffixMusic = "_music"
)

// DownloadTask describes one asset transfer. Tasks are built per dispatch
// and owned exclusively by the worker executing them.
type DownloadTask struct {
	URL string
	// Dir is the directory the final file lands in.
	Dir string
	// Ext is the assumed extension; the fetcher may correct it from the
	// response content type.
	Ext string
	// Index is the 0-based position within the asset list, or NoIndex.
	Index int
	// Suffix is appended to the base name for mixed content, or empty.
	Suffix string
}

// DownloadResult is the outcome of a single task.
type DownloadResult struct {
	// Index is the task's original position, kept so callers can restore
	// list order after out-of-order completion.
	Index int
	// Suffix carries the originating task's category tag, or empty.
	Suffix string
	Path   string
	Err    error
}
