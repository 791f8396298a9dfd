package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/realtime-chat/internal/config"
	"github.com/rickgao/realtime-chat/internal/connection"
	"github.com/rickgao/realtime-chat/internal/ui"
	"github.com/rickgao/realtime-chat/internal/version"
)

const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:          "chatclient",
	Short:        "Terminal client for the realtime chat server",
	Version:      version.String(),
	SilenceUsage: true,
	RunE:         runClient,
}

var (
	flagConfig   string
	flagURL      string
	flagLogFile  string
	flagLogLevel string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfig, "config", "", "path to YAML config file (defaults apply when empty)")
	flags.StringVar(&flagURL, "url", "", "chat server websocket URL (overrides server.url)")
	flags.StringVar(&flagLogFile, "log-file", "", "write logs to this file (overrides log.file)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error (overrides log.level)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting chat client", append(version.LogAttrs(), "url", cfg.Server.URL)...)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialer := connection.NewDialer(connection.ClientConfig{
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		PingInterval:     cfg.Server.PingInterval,
		PingTimeout:      cfg.Server.PingTimeout,
	}, logger)

	mgr := connection.NewManager(connection.ManagerConfig{
		URL:         cfg.Server.URL,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		BaseDelay:   cfg.Reconnect.BaseDelay,
	}, dialer, logger)

	model := ui.New(mgr, ui.Config{Location: loc, HistoryLimit: cfg.UI.HistoryLimit})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	unsubscribe := mgr.Subscribe(func(ev connection.Event) {
		p.Send(ui.EventMsg(ev))
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("run ui: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mgr.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("stop connection manager: %w", err)
		}
		return nil
	})

	if err := mgr.Start(gctx); err != nil {
		stop()
		return errors.Join(err, g.Wait())
	}

	err = g.Wait()
	logger.Info("chat client exited", "error", err)
	return err
}

// loadConfig reads the config file, applies flag overrides and validates.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadAndValidate(flagConfig)
	if err != nil {
		return nil, err
	}

	if flagURL != "" {
		cfg.Server.URL = flagURL
	}
	if flagLogFile != "" {
		cfg.Log.File = flagLogFile
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate flags: %w", err)
	}
	return cfg, nil
}

// newLogger builds the text logger. The terminal belongs to the UI, so
// logs go to a file or nowhere.
func newLogger(cfg config.LogConfig) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = io.Discard
	closeFn := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}
