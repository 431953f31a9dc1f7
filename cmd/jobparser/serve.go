package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abelaba/job-parser/internal/api"
	"github.com/abelaba/job-parser/internal/config"
)

func newServeCmd() *cobra.Command {
	var host, port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server the extension talks to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, func(a *app) error {
				if host != "" {
					a.cfg.Server.Host = host
				}
				if port != "" {
					a.cfg.Server.Port = port
				}
				return serve(ctx, a)
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "interface to listen on (default $HOST or 127.0.0.1)")
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (default $PORT or 8000)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	st, err := a.settings.Settings(ctx)
	if err != nil {
		return err
	}

	a.log.Info("=== job-parser startup ===",
		"notion_db_id", st.DatabaseID,
		"notion_token", config.Mask(st.DatabaseAPIKey),
		"provider_key", config.Mask(st.ProviderAPIKey),
		"notion_base_url", st.BaseURL,
		"llm_base_url", a.cfg.LLM.BaseURL,
		"sqlite", a.cfg.Storage.SQLitePath,
		"host", a.cfg.Server.Host,
		"port", a.cfg.Server.Port,
		"extension_origins", a.cfg.Server.ExtensionOrigins,
	)

	// Settings can still be filled in through /api/settings, so a failed
	// ping is only reported.
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.notion.Ping(pingCtx); err != nil {
		a.log.Warn("Notion ping failed", "err", err)
	} else {
		a.log.Info("Notion connection OK")
	}
	cancel()

	s := api.New(a.jobs, a.notion, a.settings, api.Options{
		ReleaseMode: a.cfg.Server.ReleaseMode,
		RateLimit:   a.cfg.Server.RateLimit,
		RateBurst:   a.cfg.Server.RateBurst,
		Logger:      a.log,

		AllowedOrigins: a.cfg.Server.ExtensionOrigins,
	})
	srv := &http.Server{
		Addr:              net.JoinHostPort(a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("HTTP listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
