package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pastyhq/pasty/internal/api"
	"github.com/pastyhq/pasty/internal/config"
	"github.com/pastyhq/pasty/internal/ident"
	"github.com/pastyhq/pasty/internal/metrics"
	"github.com/pastyhq/pasty/internal/pasty"
	"github.com/pastyhq/pasty/internal/store"
	"github.com/pastyhq/pasty/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	staticDir := flag.String("static-dir", "", "serve the web UI static files from this directory; leave empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("pasty-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.HTTPPort,
		"db_path", cfg.DBPath,
		"expiration_hours", cfg.ExpirationHours,
		"max_content_length", cfg.Limits.MaxContentLength,
		"rate_per_minute", cfg.Limits.RatePerMinute,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Embedded text store; migrations run at open.
	st, err := store.Open(ctx, cfg.DBPath, cfg.Window())
	if err != nil {
		slog.Error("failed to open store", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	m := metrics.New()
	limits := config.NewLiveLimits(cfg.Limits)
	svc := pasty.New(st, ident.New(st), m)

	// WebSocket hub — observers get the live text count on connect and after
	// every save.
	hub := ws.New(svc, limits)
	svc.SetNotifier(hub.Broadcast)
	go hub.Run(ctx)

	// Background expiration sweep.
	go svc.RunSweeper(ctx)

	// Hot-reload of boundary limits. Port, db path and expiration window stay
	// fixed until restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(c *config.Config) {
			limits.Set(c.Limits)
			slog.Info("limits updated",
				"max_content_length", c.Limits.MaxContentLength,
				"rate_per_minute", c.Limits.RatePerMinute,
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	httpMux := http.NewServeMux()
	apiHandler := api.New(svc, limits)
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ping", apiHandler)
	httpMux.Handle("/ws", hub)
	httpMux.Handle("/metrics", m.Handler(svc.CurrentCount, hub.Count))

	// Optional: serve the pre-built web UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *staticDir != "" {
		fs := http.FileServer(http.Dir(*staticDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// SPA fallback: if the requested file doesn't exist, serve index.html.
			path := *staticDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *staticDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving UI static files", "dir", *staticDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("pasty-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
