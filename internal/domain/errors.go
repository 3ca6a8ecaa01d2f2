package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailure means the credential exchange failed or returned a malformed body
	ErrAuthFailure = errors.New("catalog authentication failed")
	// ErrAPIFailure covers transport errors, non-2xx responses, malformed
	// bodies and pagination cursor anomalies
	ErrAPIFailure = errors.New("catalog request failed")
	// ErrConfigMissing means the settings document is absent or unparseable
	ErrConfigMissing = errors.New("configuration missing")
	// ErrProcessFailure means the downloader exited non-zero or could not be launched
	ErrProcessFailure = errors.New("downloader process failed")
	// ErrProcessTimeout means the downloader exceeded its bounded wait
	ErrProcessTimeout = errors.New("downloader process timed out")
	// ErrBatchInProgress means a download batch is already running
	ErrBatchInProgress = errors.New("a download batch is already running")
	// ErrSelectionExpired means a selection refers to a search that is no longer cached
	ErrSelectionExpired = errors.New("selection cache expired or not found")
	// ErrArtistNotFound means an artist search returned no result
	ErrArtistNotFound = errors.New("artist not found")
	// ErrNoValidItems means a selection resolved to no downloadable item
	ErrNoValidItems = errors.New("no valid items to download")
)

// APIError describes a failed catalog request
type APIError struct {
	URL    string
	Status int // zero when no response was received
	Cause  error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog request %s failed with status %d: %v", e.URL, e.Status, e.Cause)
	}
	return fmt.Sprintf("catalog request %s failed: %v", e.URL, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *APIError) Unwrap() []error {
	return []error{ErrAPIFailure, e.Cause}
}
