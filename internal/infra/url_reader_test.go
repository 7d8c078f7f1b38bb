package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
)

func TestScriptURLReader_Darwin(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		err     error
		want    string
		wantErr error
	}{
		{name: "url", out: "https://facebook.com/feed\n", want: "https://facebook.com/feed"},
		{name: "no window", out: "\n", wantErr: domain.ErrNoURL},
		{name: "missing value", out: "missing value\n", wantErr: domain.ErrNoURL},
		{name: "not running", out: notRunningMarker + "\n", wantErr: domain.ErrBrowserNotRunning},
		{
			name:    "automation denied",
			err:     errors.New("osascript: exit status 1: execution error: Not authorized to send Apple events to Google Chrome. (-1743)"),
			wantErr: domain.ErrAutomationDenied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{out: tt.out, err: tt.err}
			reader := NewScriptURLReaderWithRunner(policy.NewRegistry("darwin"), runner)

			got, err := reader.CurrentURL(context.Background(), domain.BrowserChrome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			require.Len(t, runner.calls, 1)
			assert.Equal(t, "osascript", runner.calls[0][0])
			assert.Contains(t, runner.lastScript(), `application "Google Chrome" is running`)
			assert.Contains(t, runner.lastScript(), "active tab of front window")
		})
	}
}

func TestScriptURLReader_SafariScript(t *testing.T) {
	runner := &fakeRunner{out: "https://example.com"}
	reader := NewScriptURLReaderWithRunner(policy.NewRegistry("darwin"), runner)

	_, err := reader.CurrentURL(context.Background(), domain.BrowserSafari)
	require.NoError(t, err)
	assert.Contains(t, runner.lastScript(), "URL of front document")
}

func TestScriptURLReader_ScriptFailure(t *testing.T) {
	reader := NewScriptURLReaderWithRunner(policy.NewRegistry("darwin"), &fakeRunner{err: errExit})

	_, err := reader.CurrentURL(context.Background(), domain.BrowserEdge)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAutomationDenied)
}

func TestScriptURLReader_Windows(t *testing.T) {
	runner := &fakeRunner{out: "www.facebook.com/feed\r\n"}
	reader := NewScriptURLReaderWithRunner(policy.NewRegistry("windows"), runner)

	got, err := reader.CurrentURL(context.Background(), domain.BrowserEdge)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/feed", got)
	assert.Equal(t, "powershell", runner.calls[0][0])
	assert.Contains(t, runner.lastScript(), "-Name 'msedge'")

	_, err = reader.CurrentURL(context.Background(), domain.BrowserSafari)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBrowser)
}

func TestScriptURLReader_WindowsAddressBarText(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr error
	}{
		{name: "host and path", out: "facebook.com/feed", want: "https://facebook.com/feed"},
		{name: "host with port", out: "localhost:8080/app", want: "https://localhost:8080/app"},
		{name: "full url kept", out: "http://example.com/", want: "http://example.com/"},
		{name: "search term", out: "facebook news", wantErr: domain.ErrNoURL},
		{name: "single word", out: "facebook", wantErr: domain.ErrNoURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewScriptURLReaderWithRunner(policy.NewRegistry("windows"), &fakeRunner{out: tt.out})

			got, err := reader.CurrentURL(context.Background(), domain.BrowserChrome)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScriptURLReader_UnsupportedPlatform(t *testing.T) {
	runner := &fakeRunner{}
	reader := NewScriptURLReaderWithRunner(policy.NewRegistry("linux"), runner)

	_, err := reader.CurrentURL(context.Background(), domain.BrowserChrome)
	assert.ErrorIs(t, err, domain.ErrUnsupportedBrowser)
	assert.Empty(t, runner.calls)
}
