// Package main is the entry point for confidantd, the sync server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/confidant-ai/confidant/internal/auth"
	"github.com/confidant-ai/confidant/internal/config"
	"github.com/confidant-ai/confidant/internal/gateway"
	storesqlite "github.com/confidant-ai/confidant/modules/store/sqlite"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "confidantd",
		Short:         "The confidant sync server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.AddCommand(versionCmd(), runCmd())
	root.AddCommand(controlCmds()...)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("confidantd %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync server (foreground, or under the service manager)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			svc, err := newService(cmd, &program{cfg: cfg})
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
}

// controlCmds maps the service manager verbs onto subcommands so one
// binary installs, starts, and stops itself.
func controlCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(service.ControlAction))
	for _, action := range service.ControlAction {
		cmds = append(cmds, &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the confidantd system service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd, &program{})
				if err != nil {
					return err
				}
				if err := service.Control(svc, cmd.Use); err != nil {
					return fmt.Errorf("service %s: %w", cmd.Use, err)
				}
				fmt.Printf("confidantd: %s done\n", cmd.Use)
				return nil
			},
		})
	}
	return cmds
}

func newService(cmd *cobra.Command, prg *program) (service.Service, error) {
	args := []string{"run"}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		args = append(args, "--config", path)
	}
	return service.New(prg, &service.Config{
		Name:        "confidantd",
		DisplayName: "Confidant Sync Server",
		Description: "Stores and synchronizes confidant chat state across devices.",
		Arguments:   args,
	})
}

// program adapts the gateway stack to the service manager lifecycle.
type program struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *storesqlite.Store
	gateway *gateway.Gateway
}

func (p *program) Start(service.Service) error {
	logger := newLogger(p.cfg.Log)
	p.logger = logger.With("component", "confidantd")

	st, err := storesqlite.Open(storesqlite.Config{
		Path:   p.cfg.Server.DBPath,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	p.store = st

	p.gateway = gateway.New(
		auth.NewService(st, auth.Config{Logger: logger}),
		st,
		gateway.Config{
			Bind:            p.cfg.Server.Bind,
			ReadTimeout:     p.cfg.Server.ReadTimeoutDuration(),
			ShutdownTimeout: p.cfg.Server.ShutdownTimeoutDuration(),
			Logger:          logger,
		},
	)
	if err := p.gateway.Validate(); err != nil {
		_ = st.Close()
		return err
	}
	if err := p.gateway.Start(); err != nil {
		_ = st.Close()
		return err
	}
	p.logger.Info("started", "version", version, "db", p.cfg.Server.DBPath)
	return nil
}

func (p *program) Stop(service.Service) error {
	if p.gateway != nil {
		if err := p.gateway.Stop(context.Background()); err != nil {
			p.logger.Warn("gateway stop failed", "error", err)
		}
	}
	if p.store != nil {
		return p.store.Close()
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		resolved, err := resolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}
	if path == "" {
		cfg := &config.Config{}
		cfg.Defaults()
		return cfg, nil
	}
	return config.Load(path)
}

// resolveConfigPath searches standard locations for the daemon config.
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "confidant", "confidantd.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "confidant", "confidantd.yaml"))
	}

	candidates = append(candidates, "confidantd.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
