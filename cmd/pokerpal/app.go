package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itsanji/pocker-winner-bot/bot"
	"github.com/itsanji/pocker-winner-bot/config"
	"github.com/itsanji/pocker-winner-bot/poker"
	"github.com/itsanji/pocker-winner-bot/poker/store"
	"github.com/itsanji/pocker-winner-bot/sheets"
	redisstore "github.com/itsanji/pocker-winner-bot/store/redis"
	"github.com/itsanji/pocker-winner-bot/store/sqlite"
)

// app is everything a transport needs, built from config.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      poker.Store
	session    *poker.Session
	journal    *sheets.Journal
	dispatcher *bot.Dispatcher

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, closeStore)

	writer, err := openWriter(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := cfg.Policy()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.journal = sheets.NewJournal(writer, sheets.JournalConfig{
		MaxTries: cfg.SheetsMaxTries,
		Timeout:  cfg.SheetsTimeout,
		Location: loc,
	}, logger)

	a.session = poker.NewSession(poker.SessionConfig{
		Store:       st,
		ExitPolicy:  policy,
		Location:    loc,
		Subscribers: []poker.Subscriber{a.journal.Record},
	})

	if err := a.restore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.dispatcher = bot.NewDispatcher(a.session, a.journal, logger)
	a.dispatcher.FlushTimeout = cfg.FlushBudget
	logger.Info("app ready",
		"storage", cfg.Storage,
		"sheets", cfg.SheetsEnabled(),
		"exit_policy", policy,
		"timezone", loc.String(),
	)
	return a, nil
}

// restore picks up the latest session when it is still running.
func (a *app) restore(ctx context.Context) error {
	rec, err := poker.LatestSession(ctx, a.store)
	if errors.Is(err, poker.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find latest session: %w", err)
	}

	events, err := a.store.Load(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", rec.ID, err)
	}
	snap, err := poker.Replay(rec, events)
	if err != nil {
		a.logger.Warn("latest session cannot be replayed, starting empty", "session_id", rec.ID, "error", err)
		return nil
	}
	if snap.Status != poker.StatusActive {
		return nil
	}

	if err := a.session.Restore(ctx, rec); err != nil {
		return fmt.Errorf("restore session %s: %w", rec.ID, err)
	}
	a.journal.Resume(rec, events)
	a.logger.Info("session restored", "session_id", rec.ID, "date", rec.Date.String(), "events", len(events))
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("close failed", "error", err)
		}
	}
	a.closers = nil
}

func openStore(cfg *config.Config) (poker.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, s.Close, nil

	case config.StorageRedis:
		rcfg := redisstore.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		s, err := redisstore.New(rcfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, s.Close, nil
	}
	return store.NewMemory(), func() error { return nil }, nil
}

func openWriter(ctx context.Context, cfg *config.Config) (sheets.Writer, error) {
	if !cfg.SheetsEnabled() {
		return sheets.Discard{}, nil
	}
	g, err := sheets.NewGoogleSheets(ctx, cfg.SheetsID, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("connect to google sheets: %w", err)
	}
	return g, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
