package app

import (
	"sync"

	"github.com/yourusername/music-harvest-go/internal/domain"
)

// StatusTracker is the in-memory StatusStore. Every write replaces whole
// fields under the lock and every snapshot copies the message slice, so
// readers never observe a partially applied update.
type StatusTracker struct {
	mu     sync.RWMutex
	status domain.DownloadStatus
}

// NewStatusTracker creates an idle status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		status: domain.DownloadStatus{StatusMessages: []string{}},
	}
}

// Reset replaces the record for a new batch
func (s *StatusTracker) Reset(batchID string, total int, messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = domain.DownloadStatus{
		BatchID:        batchID,
		Running:        true,
		TotalItems:     total,
		StatusMessages: append(make([]string, 0, len(messages)), messages...),
	}
}

// Append adds status lines in order
func (s *StatusTracker) Append(messages ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.StatusMessages = append(s.status.StatusMessages, messages...)
}

// SetCompleted records the completed count and recomputes progress
func (s *StatusTracker) SetCompleted(completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.CompletedItems = completed
	s.status.Progress = domain.ProgressPercent(completed, s.status.TotalItems)
}

// Finish marks the batch done
func (s *StatusTracker) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Running = false
	if s.status.CompletedItems == s.status.TotalItems {
		s.status.Progress = 100
	}
}

// Snapshot returns a copy of the current record
func (s *StatusTracker) Snapshot() domain.DownloadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.status
	snapshot.StatusMessages = append([]string(nil), s.status.StatusMessages...)
	if snapshot.StatusMessages == nil {
		snapshot.StatusMessages = []string{}
	}
	return snapshot
}
