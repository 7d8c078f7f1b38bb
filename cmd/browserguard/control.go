package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/browser_guard/internal/daemon"
	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/infra"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
	"github.com/eliteGoblin/focusd/browser_guard/internal/telemetry"
	"github.com/eliteGoblin/focusd/browser_guard/internal/usecase"
)

const stopTimeout = 5 * time.Second

// runningDaemon returns the recorded daemon if its process is still alive.
func runningDaemon(store *infra.EncryptedStore, pm domain.ProcessManager) (*domain.DaemonRecord, error) {
	rec, err := store.GetDaemon()
	if err != nil {
		return nil, err
	}
	if !pm.IsRunning(rec.PID) {
		// Stale record from a daemon that died without cleaning up.
		_ = store.ClearDaemon()
		return nil, domain.ErrDaemonNotRecorded
	}
	return rec, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	_, cfg, execMode, err := loadConfig()
	if err != nil {
		return err
	}
	fmt.Printf("Execution mode: %s\n", execMode.Mode)

	store, err := infra.OpenEncryptedStore(cfg.DataDir)
	if err != nil {
		return err
	}
	rec, err := runningDaemon(store, infra.NewProcessManager())
	store.Close()
	if err == nil {
		fmt.Printf("browserguard is already running (pid %d)\n", rec.PID)
		return nil
	}

	pid, err := daemon.StartDetached("--config", configPath)
	if err != nil {
		return err
	}

	fmt.Println("\n=== browserguard Started ===")
	fmt.Printf("PID: %d\n", pid)
	fmt.Printf("Log: %s\n", cfg.LogPath)
	if cfg.DebugServer.Enabled {
		fmt.Printf("Dashboard: http://%s:%d (next free port if taken)\n", cfg.DebugServer.Host, cfg.DebugServer.Port)
	}
	fmt.Println("============================")
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	_, cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := infra.OpenEncryptedStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := usecase.NewAdmin(store).Verify(password); err != nil {
		if errors.Is(err, domain.ErrAdminPasswordNotSet) {
			return fmt.Errorf("%w: run 'browserguard passwd --new <password>' first", err)
		}
		return err
	}

	pm := infra.NewProcessManager()
	rec, err := runningDaemon(store, pm)
	if err != nil {
		fmt.Println("browserguard is not running")
		return nil
	}

	p, err := process.NewProcess(int32(rec.PID))
	if err != nil {
		return fmt.Errorf("failed to find daemon process: %w", err)
	}
	// SIGTERM lets the daemon clear its record; Windows has no graceful signal.
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	deadline := time.Now().Add(stopTimeout)
	for pm.IsRunning(rec.PID) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if pm.IsRunning(rec.PID) {
		if err := pm.Kill(rec.PID); err != nil {
			return fmt.Errorf("failed to kill daemon: %w", err)
		}
	}
	_ = store.ClearDaemon()

	fmt.Printf("browserguard stopped (pid %d)\n", rec.PID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, cfg, execMode, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := infra.OpenEncryptedStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("\n=== browserguard Status ===")
	fmt.Printf("Execution mode: %s\n", execMode.Mode)
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Blocklist URL: %s\n", cfg.BlocklistURL)
	if !cfg.LastReloadTime.IsZero() {
		fmt.Printf("Last blocklist reload: %s ago\n", time.Since(cfg.LastReloadTime).Round(time.Second))
	}

	rec, err := runningDaemon(store, infra.NewProcessManager())
	if err != nil {
		fmt.Println("Status: NOT RUNNING")
		fmt.Println("\nRun 'browserguard start' to enable protection.")
		return nil
	}
	fmt.Println("Status: RUNNING")
	fmt.Printf("PID: %d (v%s, up %s)\n", rec.PID, rec.AppVersion, time.Since(rec.StartedAt).Round(time.Second))

	if rec.DebugPort == 0 {
		fmt.Println("Debug server: disabled")
	} else {
		url := "http://" + cfg.DebugServer.Host + ":" + strconv.Itoa(rec.DebugPort)
		fmt.Printf("Debug server: %s\n", url)
		state, err := fetchState(cmd.Context(), url)
		if err != nil {
			fmt.Printf("  (unreachable: %v)\n", err)
		} else {
			printState(state)
		}
	}

	fmt.Println("===========================")
	return nil
}

func fetchState(ctx context.Context, baseURL string) (*domain.DebugState, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/state", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var state domain.DebugState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

func printState(state *domain.DebugState) {
	bl := state.Blocklist
	if bl.Error != nil {
		fmt.Printf("Blocklist: error: %s\n", *bl.Error)
	}
	if bl.Status.IsActive && bl.Status.CurrentPeriod != nil {
		fmt.Printf("Blocking now: %s-%s\n", bl.Status.CurrentPeriod.Start, bl.Status.CurrentPeriod.End)
	} else {
		fmt.Println("Blocking now: no active period")
	}
	fmt.Println("\nBrowsers:")
	ids := make([]string, 0, len(state.Browsers))
	for id := range state.Browsers {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := state.Browsers[domain.BrowserID(id)]
		line := fmt.Sprintf("  - %s: ", b.Browser)
		switch {
		case !b.IsRunning:
			line += "not running"
		case b.CurrentURL != nil:
			line += *b.CurrentURL
		default:
			line += "running"
		}
		fmt.Println(line)
	}
	fmt.Printf("\nObservers connected: %d\n", len(state.Clients))
}

func runCheckURL(cmd *cobra.Command, args []string) error {
	_, cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	clock := infra.NewRealClock()
	hub := telemetry.NewHub(domain.SystemInfo{Platform: runtime.GOOS, Version: Version}, clock, zap.NewNop())
	defer hub.Close()

	source := usecase.NewBlocklistSource(
		infra.NewHTTPBlocklistFetcher(cfg.BlocklistURL, Version),
		policy.DefaultRuleSet(cfg.SeedDomain),
		cfg.RefreshInterval, hub, clock, logger,
	)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := source.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: using built-in blocklist: %v\n", err)
	}

	result := usecase.NewInspector(source, hub, hub, clock).TestURL(args[0])
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Printf("URL: %s\n", result.URL)
	fmt.Printf("Time: %s\n", result.CurrentTime)
	if result.Blocked {
		fmt.Printf("Result: BLOCKED (domain %s, period %s-%s)\n",
			result.MatchedDomain(), result.MatchedRule.Period.Start, result.MatchedRule.Period.End)
	} else {
		fmt.Printf("Result: allowed (%s)\n", result.Reason)
	}
	return nil
}

func runBrowsers(cmd *cobra.Command, args []string) error {
	registry := policy.NewRegistry(runtime.GOOS)

	fmt.Printf("\n=== Watched Browsers (%s) ===\n", registry.GOOS())
	for _, p := range registry.GetAll() {
		fmt.Printf("\n[%s] %s\n", p.ID(), p.Name())
		fmt.Println("  Processes:")
		for _, proc := range p.ProcessPatterns(registry.GOOS()) {
			fmt.Printf("    - %s\n", proc)
		}
	}
	fmt.Println("\n=============================")
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	_, cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := infra.OpenEncryptedStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := usecase.NewAdmin(store).SetPassword(oldPassword, newPassword); err != nil {
		return err
	}
	fmt.Println("Admin password updated")
	return nil
}
