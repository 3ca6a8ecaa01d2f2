package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/music-harvest-go/internal/domain"
	"go.uber.org/zap"
)

type recordedCommand struct {
	name string
	args []string
}

func newTestNotifier(config *domain.NotificationConfig, fail bool) (*NotificationService, *[]recordedCommand) {
	var commands []recordedCommand
	n := NewNotificationService(config, zap.NewNop())
	n.run = func(name string, args ...string) error {
		commands = append(commands, recordedCommand{name: name, args: args})
		if fail {
			return errors.New("no display")
		}
		return nil
	}
	return n, &commands
}

func TestNotificationService_Disabled(t *testing.T) {
	n, commands := newTestNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, false)

	assert.NoError(t, n.Send("title", "message"))
	assert.Empty(t, *commands)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, commands := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, false)

	n.NotifyBatchFinished(domain.BatchSummary{Total: 3, Succeeded: 1, Failed: 1, TimedOut: 1})

	assert.Len(t, *commands, 1)
	cmd := (*commands)[0]
	assert.Equal(t, "notify-send", cmd.name)
	assert.Equal(t, []string{"Downloads Finished With Errors", "1 of 3 succeeded, 1 failed, 1 timed out"}, cmd.args)
}

func TestNotificationService_OSAScriptEscapes(t *testing.T) {
	n, commands := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript"}, false)

	assert.NoError(t, n.Send(`Say "hi"`, "done"))

	cmd := (*commands)[0]
	assert.Equal(t, "osascript", cmd.name)
	assert.Equal(t, `display notification "done" with title "Say \"hi\""`, cmd.args[1])
}

func TestNotificationService_FailureReturned(t *testing.T) {
	n, _ := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, true)

	assert.Error(t, n.Send("a", "b"))
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, commands := newTestNotifier(&domain.NotificationConfig{Enabled: true, Method: "pigeon"}, false)

	assert.NoError(t, n.Send("a", "b"))
	assert.Empty(t, *commands)
}
