/*
serve.go - Long-running bot process

STARTUP SEQUENCE:
  1. Open the store and restore a running session
  2. Connect to Google Sheets (when configured)
  3. Start the HTTP server (RocketChat hook, JSON API)
  4. Connect to Discord (when DISCORD_TOKEN is set)
  5. Start the background sheet flush

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Disconnect from Discord
  2. Stop accepting HTTP connections, wait up to 30s for active requests
  3. Flush buffered sheet rows one last time
  4. Close the store
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsanji/pocker-winner-bot/api"
	"github.com/itsanji/pocker-winner-bot/discord"
	"github.com/itsanji/pocker-winner-bot/sheets"
)

const (
	shutdownTimeout = 30 * time.Second
	minWriteTimeout = 15 * time.Second
)

// writeTimeout leaves a command's sheet flush room to finish before the
// reply is written.
func writeTimeout(flushBudget time.Duration) time.Duration {
	return max(minWriteTimeout, flushBudget+5*time.Second)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bot and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := jsonLogger(cfg.LogLevel)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := api.NewHandler(a.dispatcher, cfg.RocketChatToken, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(handler, api.RouterOptions{Scenarios: cfg.Demo}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.FlushBudget),
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr, "demo", cfg.Demo)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var discordBot *discord.Bot
	if cfg.DiscordToken != "" {
		discordBot, err = discord.Open(cfg.DiscordToken, a.dispatcher, logger)
		if err != nil {
			_ = server.Close()
			return err
		}
	} else {
		logger.Info("DISCORD_TOKEN not set, discord disabled")
	}

	scheduler := sheets.NewFlushScheduler(a.journal, logger)
	scheduler.CheckInterval = cfg.FlushInterval
	scheduler.Enabled = cfg.SheetsEnabled()
	scheduler.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err = <-serverErr:
		logger.Error("http server failed", "error", err)
	}

	if discordBot != nil {
		if cerr := discordBot.Close(); cerr != nil {
			logger.Error("discord close failed", "error", cerr)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Error("http server forced to shutdown", "error", serr)
	}
	scheduler.Stop(shutdownCtx)

	logger.Info("stopped")
	return err
}
