package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/browser_guard/internal/config"
	"github.com/eliteGoblin/focusd/browser_guard/internal/daemon"
	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
	"github.com/eliteGoblin/focusd/browser_guard/internal/infra"
	"github.com/eliteGoblin/focusd/browser_guard/internal/policy"
	"github.com/eliteGoblin/focusd/browser_guard/internal/telemetry"
	"github.com/eliteGoblin/focusd/browser_guard/internal/usecase"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	manager, cfg, execMode, err := loadConfig()
	if err != nil {
		return err
	}

	fileLogger := createLogger(cfg.LogPath, execMode.ErrorLogPath)
	defer func() { _ = fileLogger.Sync() }()

	clock := infra.NewRealClock()
	registry := policy.NewRegistry(runtime.GOOS)

	// The hub logs to the file only; everything else is teed into it.
	hub := telemetry.NewHub(domain.SystemInfo{
		Platform:             runtime.GOOS,
		Version:              Version,
		AccessibilityEnabled: true,
		LogPath:              cfg.LogPath,
	}, clock, fileLogger.Named("telemetry"))
	defer hub.Close()
	hub.SetBrowsers(registry.IDs())

	logger := fileLogger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, telemetry.NewCore(hub, zapcore.InfoLevel))
	}))

	store, err := infra.OpenEncryptedStore(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open encrypted store", zap.Error(err))
		return err
	}
	defer store.Close()

	// Infrastructure
	pm := infra.NewProcessManager()
	killer := infra.NewBrowserKiller(pm, registry, logger.Named("killer"))
	reader := infra.NewScriptURLReader(registry)
	fetcher := infra.NewHTTPBlocklistFetcher(cfg.BlocklistURL, Version)
	notifier := infra.NewDesktopNotifier(runtime.GOOS, cfg.KillDelay, logger.Named("notifier"))

	// Use cases
	probe := usecase.NewBrowserProbe(reader, killer, clock, logger.Named("probe"))
	probe.OnAutomationDenied(func(domain.BrowserID) {
		hub.SetAccessibility(false)
	})

	source := usecase.NewBlocklistSource(fetcher, policy.DefaultRuleSet(cfg.SeedDomain),
		cfg.RefreshInterval, hub, clock, logger.Named("blocklist"))
	source.OnRefreshed(func(at time.Time) {
		if err := manager.Update(func(c *config.Config) { c.LastReloadTime = at }); err != nil {
			logger.Warn("failed to record reload time", zap.Error(err))
		}
	})

	enforcer := usecase.NewEnforcer(killer, hub, clock, usecase.EnforcerConfig{
		KillDelay: cfg.KillDelay,
		Cooldown:  cfg.KillCooldown,
	}, logger.Named("enforcer"))
	inspector := usecase.NewInspector(source, hub, hub, clock)

	// Loops
	watcher := daemon.NewWatcher(
		daemon.WatcherConfig{PollInterval: cfg.PollInterval},
		registry.IDs(),
		probe,
		source,
		enforcer,
		hub,
		notifier,
		clock,
		logger.Named("watcher"),
	)
	refresher := daemon.NewRefresher(
		daemon.RefresherConfig{Interval: cfg.RefreshInterval},
		source,
		clock,
		logger.Named("blocklist"),
	)

	var server *telemetry.Server
	if cfg.DebugServer.Enabled {
		server = telemetry.NewServer(telemetry.ServerConfig{
			Host:         cfg.DebugServer.Host,
			Port:         cfg.DebugServer.Port,
			PortAttempts: cfg.DebugServer.PortAttempts,
			RateLimit:    cfg.DebugServer.RateLimit,
			RateBurst:    cfg.DebugServer.RateBurst,
		}, hub, inspector, logger.Named("debug-server"))
		if _, err := server.Listen(); err != nil {
			// Enforcement keeps running without the dashboard.
			logger.Warn("debug server disabled", zap.Error(err))
			server = nil
		}
	}

	rec := domain.DaemonRecord{
		PID:        os.Getpid(),
		StartedAt:  clock.Now(),
		AppVersion: Version,
	}
	if server != nil {
		rec.DebugPort = server.Port()
	}
	if err := store.RecordDaemon(rec); err != nil {
		logger.Warn("failed to record daemon", zap.Error(err))
	}
	defer func() {
		if err := store.ClearDaemon(); err != nil {
			logger.Warn("failed to clear daemon record", zap.Error(err))
		}
	}()

	if runtime.GOOS == "darwin" {
		logger.Info("reading browser URLs needs Automation permission for the browsers",
			zap.String("settings", "System Settings > Privacy & Security > Automation"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	logger.Info("browserguard started",
		zap.Int("pid", rec.PID),
		zap.String("version", Version),
		zap.String("blocklist_url", cfg.BlocklistURL),
		zap.Int("debug_port", rec.DebugPort))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(watcher.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(refresher.Run(gctx)) })
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				logger.Info("received SIGHUP, refreshing blocklist")
				refresher.Trigger()
			}
		}
	})
	if server != nil {
		g.Go(func() error {
			if err := server.Start(gctx); err != nil {
				logger.Error("debug server failed", zap.Error(err))
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("browserguard stopped")
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
