package entity

// BatchResult aggregates the outcome of routing one content record (or a
// whole batch of records). Success means at least one file was produced;
// partial failures land in Errors without flipping it.
type BatchResult struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Errors  []string `json:"errors"`
}

func (r *BatchResult) AddFile(path string) {
	r.Files = append(r.Files, path)
	r.Success = true
}

func (r *BatchResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Merge folds other into r, preserving the partial-success rule. Success
// carries over from either side, so an outcome that is successful without
// producing new files (an already downloaded record) still counts.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}

	r.Files = append(r.Files, other.Files...)
	r.Errors = append(r.Errors, other.Errors...)
	if other.Success {
		r.Success = true
	}
}
