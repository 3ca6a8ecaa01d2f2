package domain

// DownloadHistoryRepository defines the interface for download history persistence
type DownloadHistoryRepository interface {
	// Create stores a finished task record
	Create(record *DownloadRecord) error

	// FindByBatch finds all records of a batch in execution order
	FindByBatch(batchID string) ([]*DownloadRecord, error)

	// FindRecent finds the most recent records, newest first
	FindRecent(limit int) ([]*DownloadRecord, error)

	// GetStats returns history statistics
	GetStats() (*HistoryStats, error)
}

// HistoryStats represents download history statistics
type HistoryStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
	TimedOut  int64 `json:"timed_out"`
	Skipped   int64 `json:"skipped"`
	Batches   int64 `json:"batches"`
}
