// Halights is a terminal client for the lights of a Home Assistant instance.
//
// Usage:
//
//	halights [command] [flags]
//
// Running without arguments opens the interactive Login, Select and Display
// screens. See 'halights --help' for the one-shot commands.
package main

import (
	"fmt"
	"os"

	"halights/internal/auth"
	"halights/internal/config"
	"halights/internal/ha"
	"halights/internal/logging"
	"halights/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

// Persistent flags; they override the config file and environment when set
var (
	configPath string
	flagHost   string
	flagToken  string
	flagSecure bool
	flagStore  string
	flagPath   string
	flagLevel  string
	flagLog    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "halights",
	Short: "Control Home Assistant lights from the terminal",
	Long: `Connects to a Home Assistant instance over its WebSocket API, lets you
pick the lights you care about and shows live controls for them.

If no command is specified, the interactive screens are opened.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.StringVar(&flagHost, "host", "", "Home Assistant host or IP")
	flags.StringVar(&flagToken, "token", "", "long-lived access token")
	flags.BoolVar(&flagSecure, "secure", false, "use wss:// instead of ws://")
	flags.StringVar(&flagStore, "store", "", "credential store backend (file, sqlite, memory)")
	flags.StringVar(&flagPath, "store-path", "", "credential store location")
	flags.StringVar(&flagLevel, "log-level", "", "log level (debug, info, warn, error); empty disables logging")
	flags.StringVar(&flagLog, "log-file", "", "write logs to this file instead of stderr")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("halights %s (commit: %s)\n", version, commit)
	},
}

// app is what every command needs: settings, logger, store and the session
// owner.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
	auth   *auth.Manager
}

func setup(cmd *cobra.Command) (*app, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(cfg.Store, cfg.StorePath, logger)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	connector := ha.NewConnector(logger)
	connector.Timeout = cfg.ConnectTimeout

	logger.Info("Starting halights",
		zap.String("version", version),
		zap.String("store", cfg.Store),
		zap.String("store_path", cfg.StorePath),
		zap.Bool("secure", cfg.Secure))

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   auth.NewManager(connector, store, cfg.Secure, logger),
	}, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = flagHost
	}
	if flags.Changed("token") {
		cfg.Token = flagToken
	}
	if flags.Changed("secure") {
		cfg.Secure = flagSecure
	}
	if flags.Changed("store") {
		cfg.Store = flagStore
		if !flags.Changed("store-path") {
			if p, err := config.DefaultStorePath(flagStore); err == nil {
				cfg.StorePath = p
			}
		}
	}
	if flags.Changed("store-path") {
		cfg.StorePath = flagPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = flagLog
	}
}

func (a *app) Close() {
	if s := a.auth.Session(); s != nil {
		s.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close store", zap.Error(err))
	}
	a.logger.Sync()
}
