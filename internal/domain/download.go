package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskKind is the kind of catalog item a download task refers to
type TaskKind string

const (
	KindAlbum TaskKind = "album"
	KindTrack TaskKind = "track"
)

// DownloadTask is one downloader invocation within a batch
type DownloadTask struct {
	Kind    TaskKind      `json:"kind"`
	Name    string        `json:"name"`
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout,omitempty"` // zero uses the configured item timeout
}

// Resolved reports whether the task carries the data needed to attempt it
func (t DownloadTask) Resolved() bool {
	return t.Name != "" && t.URL != ""
}

// TaskState is the state of a task's downloader run
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskTimedOut  TaskState = "timed_out"
	TaskSkipped   TaskState = "skipped"
)

// IsTerminal checks if the state is final
func (s TaskState) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskTimedOut || s == TaskSkipped
}

// TaskResult is the outcome of one downloader run. A failed run with a
// negative exit code never produced an exit status of its own: it could not
// be launched, was killed, or was cancelled.
type TaskResult struct {
	State    TaskState
	ExitCode int
	Err      error // nil only on success
	Started  time.Time
	Finished time.Time
}

// Launched reports whether the process ran to an exit status
func (r TaskResult) Launched() bool {
	return r.ExitCode >= 0
}

// Duration returns how long the run took
func (r TaskResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// DownloadRecord is the persisted outcome of a finished task
type DownloadRecord struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	BatchID      string    `json:"batch_id" gorm:"not null;index"`
	Kind         TaskKind  `json:"kind" gorm:"not null"`
	Name         string    `json:"name"`
	URL          string    `json:"url" gorm:"not null"`
	State        TaskState `json:"state" gorm:"not null;index"`
	ExitCode     int       `json:"exit_code"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NewDownloadRecord builds a history record from a task outcome
func NewDownloadRecord(batchID string, task DownloadTask, result TaskResult) *DownloadRecord {
	record := &DownloadRecord{
		ID:         uuid.New().String(),
		BatchID:    batchID,
		Kind:       task.Kind,
		Name:       task.Name,
		URL:        task.URL,
		State:      result.State,
		ExitCode:   result.ExitCode,
		StartedAt:  result.Started,
		FinishedAt: result.Finished,
	}
	if result.Err != nil {
		record.ErrorMessage = result.Err.Error()
	}
	return record
}

// BatchSummary counts task outcomes for a finished batch
type BatchSummary struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	TimedOut  int    `json:"timed_out"`
	Skipped   int    `json:"skipped"`
}

// Add counts a task result
func (s *BatchSummary) Add(state TaskState) {
	switch state {
	case TaskSucceeded:
		s.Succeeded++
	case TaskFailed:
		s.Failed++
	case TaskTimedOut:
		s.TimedOut++
	case TaskSkipped:
		s.Skipped++
	}
}
