package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"imposter-rounds/internal/app"
	"imposter-rounds/internal/config"
	httpTransport "imposter-rounds/internal/transport/http"
)

var CLI struct {
	Debug bool `help:"Force debug logging."`

	Serve struct {
		Config string `help:"Path to a YAML configuration file." short:"c" type:"path"`
	} `cmd:"" default:"withargs" help:"Start the game server."`

	Config struct {
		Config string `help:"Path to a YAML configuration file." short:"c" type:"path"`
	} `cmd:"" help:"Write the effective configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("server"),
		kong.Description("imposter round server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	switch ctx.Command() {
	case "serve":
		if err := serveCommand(CLI.Serve.Config, CLI.Debug); err != nil {
			writeError(err)
		}
	case "config":
		if err := configCommand(CLI.Config.Config, os.Stdout); err != nil {
			writeError(err)
		}
	}
}

// configCommand prints the configuration after files and env are applied
func configCommand(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func serveCommand(path string, debug bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting imposter game server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	words := app.DefaultWordBank()
	if cfg.Words.File != "" {
		words, err = app.LoadWordBank(cfg.Words.File)
		if err != nil {
			return err
		}
		logger.Info("word list loaded", "file", cfg.Words.File, "words", words.Len())
	}

	// Create game hub
	hub := app.NewGameHub(app.HubOptions{
		Settings:         cfg.GameSettings(),
		Words:            words,
		Logger:           logger,
		RoomCodeLength:   cfg.Game.RoomCodeLength,
		StaleGameTimeout: cfg.Game.StaleGameTimeout,
	})
	defer hub.Close()

	// Create HTTP server
	server := httpTransport.NewServer(cfg, hub, logger)

	errc := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
