package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

const (
	notifyTitle   = "BrowserGuard"
	notifyTimeout = 3 * time.Second
)

// DesktopNotifier shows the blocked-site warning as a desktop notification.
// Platforms without a notification tool only get the log line.
type DesktopNotifier struct {
	goos      string
	runner    CommandRunner
	killDelay time.Duration
	logger    *zap.Logger
}

// NewDesktopNotifier creates a notifier for goos.
func NewDesktopNotifier(goos string, killDelay time.Duration, logger *zap.Logger) *DesktopNotifier {
	return NewDesktopNotifierWithRunner(goos, killDelay, ExecRunner{}, logger)
}

// NewDesktopNotifierWithRunner creates a notifier with a custom runner (for testing).
func NewDesktopNotifierWithRunner(goos string, killDelay time.Duration, runner CommandRunner, logger *zap.Logger) *DesktopNotifier {
	return &DesktopNotifier{goos: goos, runner: runner, killDelay: killDelay, logger: logger}
}

// NotifyWarning tells the user url is blocked. The message announces the
// close only when a kill was scheduled.
func (n *DesktopNotifier) NotifyWarning(url string, killScheduled bool) {
	msg := warningMessage(url, killScheduled, n.killDelay)
	n.logger.Info("showing block warning",
		zap.String("url", url),
		zap.Bool("kill_scheduled", killScheduled))

	var name string
	var args []string
	switch n.goos {
	case "darwin":
		name = "osascript"
		args = []string{"-e", fmt.Sprintf("display notification %s with title %s",
			appleScriptString(msg), appleScriptString(notifyTitle))}
	case "linux":
		name = "notify-send"
		args = []string{"--urgency=critical", notifyTitle, msg}
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if _, err := n.runner.Output(ctx, name, args...); err != nil {
		n.logger.Warn("failed to show notification", zap.Error(err))
	}
}

func warningMessage(url string, killScheduled bool, killDelay time.Duration) string {
	if killScheduled {
		return fmt.Sprintf("%s is blocked right now. The browser will close in %s.", url, killDelay)
	}
	return fmt.Sprintf("%s is blocked right now. Please close it.", url)
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Ensure DesktopNotifier implements domain.Notifier.
var _ domain.Notifier = (*DesktopNotifier)(nil)
