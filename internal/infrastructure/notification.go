package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification. Delivery failures are logged and returned but
// never affect the caller's work.
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var name string
	var args []string
	switch n.config.Method {
	case "osascript":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
		name, args = "osascript", []string{"-e", script}
	case "notify-send":
		name, args = "notify-send", []string{title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyBatchFinished reports the outcome of a download batch
func (n *NotificationService) NotifyBatchFinished(summary domain.BatchSummary) {
	title := "Downloads Finished"
	if summary.Failed+summary.TimedOut > 0 {
		title = "Downloads Finished With Errors"
	}
	message := fmt.Sprintf("%d of %d succeeded", summary.Succeeded, summary.Total)
	if summary.Failed > 0 {
		message += fmt.Sprintf(", %d failed", summary.Failed)
	}
	if summary.TimedOut > 0 {
		message += fmt.Sprintf(", %d timed out", summary.TimedOut)
	}
	n.Send(title, message)
}

// NotifyDiscoveryFinished reports how many new artists a discovery pass found
func (n *NotificationService) NotifyDiscoveryFinished(candidates int) {
	n.Send("Discovery Finished", fmt.Sprintf("%d new artists found", candidates))
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
