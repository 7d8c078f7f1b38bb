// Package main is the CLI entry point for browserguard.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/browser_guard/internal/config"
	"github.com/eliteGoblin/focusd/browser_guard/internal/daemon"
	"github.com/eliteGoblin/focusd/browser_guard/internal/infra"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "browserguard",
	Short: "Browser guard - closes browsers showing blocked sites",
	Long: `browserguard watches the active tab of Chrome, Edge and Safari and
closes the browser when it shows a site blocked for the current time of day.

The blocklist is fetched from a URL in the config file. A local debug
dashboard streams every check, block and kill as it happens.`,
	Version:       Version,
	SilenceUsage:  true,
}

var runCmd = &cobra.Command{
	Use:   daemon.RunCommand,
	Short: "Run the daemon in the foreground",
	Long: `Runs the enforcement loop, the blocklist refresher and the debug server
until interrupted. SIGHUP forces an immediate blocklist refresh.`,
	RunE: runDaemon,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon (requires the admin password)",
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and blocklist status",
	RunE:  runStatus,
}

var checkURLCmd = &cobra.Command{
	Use:   "check-url <url>",
	Short: "Fetch the blocklist and check whether a URL is blocked now",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckURL,
}

var browsersCmd = &cobra.Command{
	Use:   "browsers",
	Short: "List the browsers watched on this platform",
	RunE:  runBrowsers,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set or change the admin password",
	RunE:  runPasswd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath  string
	password    string
	oldPassword string
	newPassword string
	jsonOutput  bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to config file")
	stopCmd.Flags().StringVar(&password, "password", "", "Admin password")
	_ = stopCmd.MarkFlagRequired("password")
	passwdCmd.Flags().StringVar(&oldPassword, "old", "", "Current admin password (required when one is set)")
	passwdCmd.Flags().StringVar(&newPassword, "new", "", "New admin password")
	_ = passwdCmd.MarkFlagRequired("new")
	checkURLCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkURLCmd)
	rootCmd.AddCommand(browsersCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the config file and resolves the paths left empty.
func loadConfig() (*config.Manager, *config.Config, *infra.ExecModeConfig, error) {
	manager := config.NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, nil, nil, err
	}
	cfg := manager.Get()

	execMode := infra.DetectExecMode()
	if cfg.DataDir == "" {
		cfg.DataDir = execMode.DataDir
	}
	if cfg.LogPath == "" {
		cfg.LogPath = execMode.LogPath
	}
	return manager, cfg, execMode, nil
}

// createLogger writes JSON lines to logPath, falling back to stderr.
func createLogger(logPath, errorLogPath string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{errorLogPath}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stdout if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("browserguard %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
