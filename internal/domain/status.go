package domain

// DownloadStatus is a point-in-time snapshot of the running batch
type DownloadStatus struct {
	BatchID        string   `json:"batch_id,omitempty"`
	Running        bool     `json:"running"`
	TotalItems     int      `json:"total_items"`
	CompletedItems int      `json:"completed_items"`
	Progress       int      `json:"progress"`
	StatusMessages []string `json:"status_messages"`
}

// StatusUpdate is one frame of the status stream: the scalar fields plus
// the messages appended since the previous frame, which start at Offset in
// the batch's message list. Offset 0 means the client starts over.
type StatusUpdate struct {
	BatchID        string   `json:"batch_id,omitempty"`
	Running        bool     `json:"running"`
	TotalItems     int      `json:"total_items"`
	CompletedItems int      `json:"completed_items"`
	Progress       int      `json:"progress"`
	Offset         int      `json:"offset"`
	Messages       []string `json:"messages"`
}

// UpdateSince builds a frame carrying the messages from index offset on. An
// offset past the end starts over from the first message.
func (s DownloadStatus) UpdateSince(offset int) StatusUpdate {
	if offset < 0 || offset > len(s.StatusMessages) {
		offset = 0
	}
	return StatusUpdate{
		BatchID:        s.BatchID,
		Running:        s.Running,
		TotalItems:     s.TotalItems,
		CompletedItems: s.CompletedItems,
		Progress:       s.Progress,
		Offset:         offset,
		Messages:       s.StatusMessages[offset:],
	}
}

// StatusStore owns the shared progress record. The orchestrator is its only
// writer; any number of readers may take snapshots concurrently.
type StatusStore interface {
	// Reset replaces the record for a new batch
	Reset(batchID string, total int, messages ...string)
	// Append adds status lines in order
	Append(messages ...string)
	// SetCompleted records the completed count and recomputes progress
	SetCompleted(completed int)
	// Finish marks the batch as no longer running, forcing progress to 100
	// when every item completed
	Finish()
	// Snapshot returns a copy that is safe to read while the batch runs
	Snapshot() DownloadStatus
}

// ProgressPercent computes floor(completed/total*100)
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}
