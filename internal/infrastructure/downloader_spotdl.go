package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"github.com/yourusername/music-harvest-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	// outputDrainGrace bounds how long output is still collected after the
	// child exits, in case a helper it spawned keeps the pipe open
	outputDrainGrace = 2 * time.Second

	// maxOutputLine is the longest line passed on; longer runs of output
	// are split into chunks of this size
	maxOutputLine = 64 * 1024
)

// SpotDLDownloader implements Downloader by running spotdl
type SpotDLDownloader struct {
	config      *domain.DownloadConfig
	cookies     domain.CookieStore
	logger      *zap.Logger
	eventLogger *logger.MultiLogger
	drainGrace  time.Duration
}

// NewSpotDLDownloader creates a new spotdl downloader
func NewSpotDLDownloader(config *domain.DownloadConfig, cookies domain.CookieStore, log *zap.Logger, eventLogger *logger.MultiLogger) *SpotDLDownloader {
	return &SpotDLDownloader{
		config:      config,
		cookies:     cookies,
		logger:      log.With(zap.String("component", "spotdl")),
		eventLogger: eventLogger,
		drainGrace:  outputDrainGrace,
	}
}

// Args builds the spotdl argument list for a task. The cookie file is
// passed only when it exists at call time.
func (d *SpotDLDownloader) Args(task domain.DownloadTask) []string {
	format := d.config.Format
	if format == "" {
		format = "opus"
	}
	args := []string{task.URL, "--format", format, "--output", d.config.OutputDir}
	if d.cookies != nil && d.cookies.Exists() {
		args = append(args, "--cookie-file", d.cookies.Path())
	}
	return args
}

// Download runs spotdl for one task. Combined stdout and stderr are streamed
// to onLine while the process runs; process exit is watched independently of
// output so a quiet child cannot hide its exit and a chatty one cannot hide
// its timeout.
func (d *SpotDLDownloader) Download(ctx context.Context, task domain.DownloadTask, timeout time.Duration, onLine func(string)) domain.TaskResult {
	result := domain.TaskResult{State: domain.TaskRunning, ExitCode: -1, Started: time.Now()}
	if onLine == nil {
		onLine = func(string) {}
	}

	finish := func(state domain.TaskState, err error) domain.TaskResult {
		result.State = state
		result.Err = err
		result.Finished = time.Now()
		return result
	}

	if err := os.MkdirAll(d.config.OutputDir, 0755); err != nil {
		return finish(domain.TaskFailed, fmt.Errorf("%w: failed to create output directory: %v", domain.ErrProcessFailure, err))
	}

	binary := d.config.SpotDLBinary
	args := d.Args(task)

	downloadLog := d.openLogFile()
	defer downloadLog.Close()
	d.writeLogHeader(downloadLog, task, FormatCommandLine(binary, args...))

	pr, pw, err := os.Pipe()
	if err != nil {
		d.writeLogFooter(downloadLog, false, err.Error())
		return finish(domain.TaskFailed, fmt.Errorf("%w: failed to create output pipe: %v", domain.ErrProcessFailure, err))
	}
	defer pr.Close()

	cmd := exec.Command(binary, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		pw.Close()
		d.writeLogFooter(downloadLog, false, fmt.Sprintf("failed to start: %v", err))
		return finish(domain.TaskFailed, fmt.Errorf("%w: failed to start %s: %v", domain.ErrProcessFailure, binary, err))
	}
	// The child holds its own copy of the write end; ours must go so the
	// reader sees EOF when the child exits.
	pw.Close()

	d.logger.Debug("Started downloader",
		zap.String("url", task.URL),
		zap.Int("pid", cmd.Process.Pid),
		zap.Duration("timeout", timeout))

	stop := make(chan struct{})
	defer close(stop)
	lines := readLines(pr, stop)

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	emit := func(line string) {
		fmt.Fprintln(downloadLog, line)
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			onLine(trimmed)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	var timedOut, cancelled bool

wait:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			emit(line)
		case waitErr = <-exited:
			break wait
		case <-timer.C:
			timedOut = true
			d.kill(cmd)
			waitErr = <-exited
			break wait
		case <-ctx.Done():
			cancelled = true
			d.kill(cmd)
			waitErr = <-exited
			break wait
		}
	}

	d.drain(lines, emit)

	switch {
	case timedOut:
		d.writeLogFooter(downloadLog, false, fmt.Sprintf("timed out after %s", timeout))
		return finish(domain.TaskTimedOut, fmt.Errorf("%w after %s", domain.ErrProcessTimeout, timeout))
	case cancelled:
		d.writeLogFooter(downloadLog, false, "cancelled")
		return finish(domain.TaskFailed, fmt.Errorf("%w: %v", domain.ErrProcessFailure, ctx.Err()))
	case waitErr == nil:
		result.ExitCode = 0
		d.writeLogFooter(downloadLog, true, "exit code 0")
		return finish(domain.TaskSucceeded, nil)
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
		result.ExitCode = exitErr.ExitCode()
		d.writeLogFooter(downloadLog, false, fmt.Sprintf("exit code %d", result.ExitCode))
		return finish(domain.TaskFailed, fmt.Errorf("%w: exit code %d", domain.ErrProcessFailure, result.ExitCode))
	}

	d.writeLogFooter(downloadLog, false, waitErr.Error())
	return finish(domain.TaskFailed, fmt.Errorf("%w: %v", domain.ErrProcessFailure, waitErr))
}

// drain collects output still buffered after exit, for at most the grace period
func (d *SpotDLDownloader) drain(lines <-chan string, emit func(string)) {
	if lines == nil {
		return
	}
	grace := time.NewTimer(d.drainGrace)
	defer grace.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			emit(line)
		case <-grace.C:
			d.logger.Warn("Downloader output still open after exit, abandoning it")
			return
		}
	}
}

func (d *SpotDLDownloader) kill(cmd *exec.Cmd) {
	if err := killProcessTree(cmd); err != nil {
		d.logger.Warn("Failed to kill downloader", zap.Error(err))
	}
}

// readLines scans r in the background until EOF or until stop is closed.
// Reading never stops early, so the child cannot block on a full pipe.
func readLines(r io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 4096), maxOutputLine)
		scanner.Split(scanOutputLines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		if scanner.Err() != nil {
			_, _ = io.Copy(io.Discard, r)
		}
	}()
	return lines
}

// scanOutputLines is a bufio.SplitFunc ending lines at "\n", "\r\n" or a lone
// "\r", as progress bars redraw with carriage returns. A line reaching
// maxOutputLine is cut there instead of failing the scan.
func scanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		// a trailing "\r" may be the first half of "\r\n"
		if !atEOF && len(data) < maxOutputLine {
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if len(data) >= maxOutputLine {
		return maxOutputLine, data[:maxOutputLine], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// openLogFile opens today's raw download log. Logging problems never fail a
// download, so a discard sink is returned instead.
func (d *SpotDLDownloader) openLogFile() io.WriteCloser {
	if d.config.LogsDir == "" {
		return nopWriteCloser{io.Discard}
	}
	if err := os.MkdirAll(d.config.LogsDir, 0755); err != nil {
		d.logError("Failed to create logs directory", err)
		return nopWriteCloser{io.Discard}
	}

	path := logger.CategoryLogPath(d.config.LogsDir, logger.CategoryDownload, time.Now())
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		d.logError("Failed to open download log", err)
		return nopWriteCloser{io.Discard}
	}
	return file
}

func (d *SpotDLDownloader) writeLogHeader(w io.Writer, task domain.DownloadTask, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(w, "\n=== [%s] %s: %s ===\n", timestamp, task.Kind, task.Name)
	fmt.Fprintf(w, "$ %s\n", cmdLine)
}

func (d *SpotDLDownloader) writeLogFooter(w io.Writer, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", timestamp, status, message)
	fmt.Fprint(w, "=== END ===\n\n")
}

func (d *SpotDLDownloader) logError(msg string, err error) {
	d.logger.Warn(msg, zap.Error(err))
	if d.eventLogger != nil {
		d.eventLogger.LogAppError(msg, zap.Error(err))
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
