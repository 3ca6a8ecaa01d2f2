package domain

import (
	"context"
	"time"
)

// Downloader defines the interface for the external downloader process
type Downloader interface {
	// Download runs the downloader for one task and waits at most timeout for
	// it to exit. Output lines are delivered to onLine in order, from the
	// calling goroutine, as they arrive.
	Download(ctx context.Context, task DownloadTask, timeout time.Duration, onLine func(string)) TaskResult
}

// CookieStore holds the optional session-cookie file passed to the downloader
type CookieStore interface {
	// Path returns the cookie file location
	Path() string

	// Exists checks the file on disk; the result is never cached
	Exists() bool

	// Update overwrites the cookie file with content
	Update(content string) error
}
