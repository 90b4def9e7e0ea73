package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"markestedt/datepaste/config"
	"markestedt/datepaste/logging"
	"markestedt/datepaste/systray"
)

type rootOptions struct {
	configPath string
	hidden     bool
	noTray     bool
	noWeb      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "datepaste",
		Short:         "Paste the current date and time into any application",
		Long:          "DatePaste runs in the background and pastes the current date, time or both into the focused window when a global shortcut is pressed.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: user config dir, or $"+config.EnvConfigPath+")")
	root.Flags().BoolVar(&opts.hidden, "hidden", false, "do not open the settings page at startup")
	root.Flags().BoolVar(&opts.noTray, "no-tray", false, "run without a tray icon")
	root.Flags().BoolVar(&opts.noWeb, "no-web", false, "disable the local settings UI and API")

	root.AddCommand(
		newPasteCmd(opts),
		newFormatsCmd(opts),
		newPreviewCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath != "" {
		return config.LoadFile(opts.configPath)
	}
	return config.Load()
}

func runAgent(parent context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.Log, cfg.Dir())
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("Configuration loaded", "path", cfg.Path())

	agent, err := NewAgent(cfg)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	defer agent.Close()

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	withWeb := cfg.Web.Enabled && !opts.noWeb
	withTray := cfg.General.Tray && !opts.noTray
	showSettings := withWeb && !opts.hidden && !cfg.General.StartHidden

	if !withTray {
		if showSettings {
			slog.Info("Settings available", "url", fmt.Sprintf("http://127.0.0.1:%d", cfg.Web.Port))
		}
		err = agent.Run(ctx, withWeb)
		slog.Info("DatePaste stopped")
		return err
	}

	port := 0
	if withWeb {
		port = cfg.Web.Port
	}
	tray := systray.NewManager(agent, cfg.Hotkeys.Bindings(), port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- agent.Run(ctx, withWeb)
		tray.Stop()
	}()
	go func() {
		select {
		case <-tray.WaitForQuit():
			cancel()
		case <-ctx.Done():
		}
	}()

	if showSettings {
		// Give the web server a moment to bind before the browser asks.
		time.AfterFunc(500*time.Millisecond, tray.OpenSettings)
	}

	// The tray owns the main thread until Quit or shutdown.
	tray.Run()
	cancel()

	err = <-errCh
	slog.Info("DatePaste stopped")
	return err
}
