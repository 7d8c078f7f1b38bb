package infra

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

const (
	defaultScriptTimeout = 5 * time.Second
	notRunningMarker     = "__not_running__"

	// osascript error -1743: "Not authorized to send Apple events".
	automationDeniedCode = "-1743"
)

// ScriptURLReader reads the active tab URL with the host's scripting tool:
// osascript on macOS, PowerShell UI Automation on Windows.
type ScriptURLReader struct {
	registry *policy.Registry
	runner   CommandRunner
	timeout  time.Duration
}

// NewScriptURLReader creates a reader for the browsers in registry.
func NewScriptURLReader(registry *policy.Registry) *ScriptURLReader {
	return NewScriptURLReaderWithRunner(registry, ExecRunner{})
}

// NewScriptURLReaderWithRunner creates a reader with a custom runner (for testing).
func NewScriptURLReaderWithRunner(registry *policy.Registry, runner CommandRunner) *ScriptURLReader {
	return &ScriptURLReader{
		registry: registry,
		runner:   runner,
		timeout:  defaultScriptTimeout,
	}
}

// CurrentURL returns the active tab URL of browser.
func (r *ScriptURLReader) CurrentURL(ctx context.Context, browser domain.BrowserID) (string, error) {
	bp, ok := r.registry.Get(browser)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedBrowser, browser)
	}

	var name string
	var args []string
	switch r.registry.GOOS() {
	case "darwin":
		name, args = "osascript", []string{"-e", appleScript(bp)}
	case "windows":
		patterns := bp.ProcessPatterns("windows")
		if len(patterns) == 0 {
			return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedBrowser, browser)
		}
		name = "powershell"
		args = []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass",
			"-Command", powerShellScript(strings.TrimSuffix(patterns[0], ".exe"))}
	default:
		return "", fmt.Errorf("%w: url capture on %s", domain.ErrUnsupportedBrowser, r.registry.GOOS())
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.runner.Output(ctx, name, args...)
	if err != nil {
		if strings.Contains(err.Error(), automationDeniedCode) {
			return "", fmt.Errorf("%w: %s", domain.ErrAutomationDenied, bp.Name())
		}
		return "", fmt.Errorf("failed to read %s url: %w", bp.Name(), err)
	}

	raw := strings.TrimSpace(string(out))
	switch {
	case raw == notRunningMarker:
		return "", domain.ErrBrowserNotRunning
	case raw == "" || raw == "missing value":
		return "", domain.ErrNoURL
	}
	if r.registry.GOOS() == "windows" && !strings.Contains(raw, "://") {
		// The Windows address bar hides the scheme.
		withScheme, ok := addressBarURL(raw)
		if !ok {
			return "", fmt.Errorf("%w: address bar holds %q", domain.ErrNoURL, raw)
		}
		raw = withScheme
	}
	return raw, nil
}

// addressBarURL adds https:// to scheme-less address bar text when it names
// a host. Search terms and partial input are rejected.
func addressBarURL(text string) (string, bool) {
	if strings.ContainsAny(text, " \t") {
		return "", false
	}
	u, err := url.Parse("https://" + text)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	if host == "" || (!strings.Contains(host, ".") && host != "localhost") {
		return "", false
	}
	return u.String(), true
}

// appleScript returns a script that prints the front tab URL without
// launching the browser when it is closed.
func appleScript(bp policy.BrowserPolicy) string {
	target := "URL of active tab of front window"
	if bp.ID() == domain.BrowserSafari {
		target = "URL of front document"
	}
	return fmt.Sprintf(`if application %q is running then
	tell application %q
		if (count of windows) is 0 then return ""
		return %s
	end tell
else
	return %q
end if`, bp.Name(), bp.Name(), target, notRunningMarker)
}

// powerShellScript reads the address bar of the first visible window of
// process through UI Automation.
func powerShellScript(process string) string {
	return fmt.Sprintf(`Add-Type -AssemblyName UIAutomationClient
Add-Type -AssemblyName UIAutomationTypes
$p = Get-Process -Name '%s' -ErrorAction SilentlyContinue | Where-Object { $_.MainWindowHandle -ne 0 } | Select-Object -First 1
if (-not $p) { Write-Output '%s'; exit 0 }
$root = [System.Windows.Automation.AutomationElement]::FromHandle($p.MainWindowHandle)
$cond = New-Object System.Windows.Automation.PropertyCondition([System.Windows.Automation.AutomationElement]::ControlTypeProperty, [System.Windows.Automation.ControlType]::Edit)
$edit = $root.FindFirst([System.Windows.Automation.TreeScope]::Descendants, $cond)
if ($edit) { $edit.GetCurrentPattern([System.Windows.Automation.ValuePattern]::Pattern).Current.Value }`,
		process, notRunningMarker)
}

// Ensure ScriptURLReader implements domain.URLReader.
var _ domain.URLReader = (*ScriptURLReader)(nil)
