// cmd/web/main.go
//
// docschema – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load configuration (dotenv → conf/global.yaml → DOCSCHEMA_ env).
//
//  2. Start the daily rotating logger (tees to console in a TTY).
//
//  3. Resolve `vault:` secret references, when any are present.
//
//  4. Build the schema registry: the four built-in record types plus any
//     definitions under schema.dir.
//
//  5. Open the MySQL pool and create one table per collection.
//
//  6. Optionally load the GeoLite2 database for request enrichment.
//
//  7. Serve:
//
//     • API listener      – /api/... behind Enrich, RequestLog, Security,
//     and ForceHTTPS
//     • metrics listener  – Prometheus /metrics on http.metrics_addr
//
//     Both run under one errgroup and stop together on SIGINT or SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/docschema/internal/api"
	"github.com/yanizio/docschema/internal/config"
	"github.com/yanizio/docschema/internal/database"
	"github.com/yanizio/docschema/internal/logger"
	"github.com/yanizio/docschema/internal/metrics"
	"github.com/yanizio/docschema/internal/middleware"
	"github.com/yanizio/docschema/internal/requestinfo"
	"github.com/yanizio/docschema/internal/schema"
	"github.com/yanizio/docschema/internal/server"
	"github.com/yanizio/docschema/internal/store"
	"github.com/yanizio/docschema/internal/vault"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.S().Errorw("docschema stopped", "err", err)
		_ = zap.S().Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger.Bootstrap()

	//
	// ── 1.  Config + logger ─────────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logOut, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Printf("start logger: %v", err)
		return err
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Secrets ─────────────────────────────────────────────────────
	//
	if cfg.HasSecretRefs() {
		vc, err := vault.New(ctx)
		if err != nil {
			return err
		}
		if err := cfg.ResolveSecrets(ctx, vc.GetKV); err != nil {
			return err
		}
		logOut.Infow("secrets resolved")
	}

	//
	// ── 3.  Schema registry ─────────────────────────────────────────────
	//
	var opts []schema.Option
	if cfg.Schema.RejectUnknownFields {
		opts = append(opts, schema.RejectUnknownFields())
	}
	reg, err := schema.Load(cfg.Schema.Dir, opts...)
	if err != nil {
		return err
	}
	types := reg.Types()
	metrics.RegisteredTypes.Set(float64(len(types)))
	for _, rt := range types {
		logOut.Infow("record type registered",
			"type", rt.Name, "collection", rt.Collection, "fields", len(rt.Fields))
	}

	//
	// ── 4.  Database + migrations ───────────────────────────────────────
	//
	logOut.Infow("connecting to database")
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, cfg.Database.Password, database.Options{
		MaxOpenConns: cfg.Database.MaxOpen,
		MaxIdleConns: cfg.Database.MaxIdle,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db)
	if err := st.Migrate(ctx, types); err != nil {
		return err
	}
	logOut.Infow("database online", "collections", len(types))

	//
	// ── 5.  GeoIP (optional) ────────────────────────────────────────────
	//
	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "err", err)
		} else {
			defer requestinfo.CloseGeo()
		}
	}

	//
	// ── 6.  Routers ─────────────────────────────────────────────────────
	//
	root := chi.NewRouter()
	root.Use(chimw.RequestID, chimw.Recoverer)
	root.Use(requestinfo.Enrich, middleware.RequestLog(logOut), middleware.Security)
	root.Mount("/api", api.New(reg, st, logOut).Routes())
	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	apiSrv := server.New(cfg.HTTP.ListenAddr, middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, root))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logOut.Infow("api listening", "addr", cfg.HTTP.ListenAddr)
		return server.Run(gctx, apiSrv)
	})
	if cfg.HTTP.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := server.New(cfg.HTTP.MetricsAddr, mux)
		g.Go(func() error {
			logOut.Infow("metrics listening", "addr", cfg.HTTP.MetricsAddr)
			return server.Run(gctx, metricsSrv)
		})
	}

	err = g.Wait()
	logOut.Infow("shutdown complete")
	return err
}
