package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/abelaba/job-parser/internal/ai"
	"github.com/abelaba/job-parser/internal/config"
	"github.com/abelaba/job-parser/internal/jobs"
	"github.com/abelaba/job-parser/internal/messaging"
	"github.com/abelaba/job-parser/internal/notion"
	"github.com/abelaba/job-parser/internal/store"
)

// app is the wired set of components every command works with.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	db         *sql.DB
	settings   *store.Store
	notion     *notion.Client
	jobs       *jobs.Service
	dispatcher *messaging.Dispatcher
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	db, err := store.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	st := store.New(db, cfg.Defaults)
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	nc := notion.New(st, &http.Client{Timeout: cfg.Storage.HTTPTimeout})
	llm := ai.New(ai.Config{
		BaseURL:      cfg.LLM.BaseURL,
		ExtractModel: cfg.LLM.ExtractModel,
		CompareModel: cfg.LLM.CompareModel,
	}, st, &http.Client{Timeout: cfg.LLM.Timeout})
	svc := jobs.NewService(nc, llm, st, jobs.WithLogger(log))

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		settings:   st,
		notion:     nc,
		jobs:       svc,
		dispatcher: messaging.NewDispatcher(svc, log),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// withApp builds the app for one command run.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
