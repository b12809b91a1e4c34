package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/analysis"
	"github.com/joseph-ayodele/docextract/internal/archive"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/docintel"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// app holds the wired components and everything that needs closing.
type app struct {
	cfg          *common.Config
	orchestrator *analysis.Orchestrator
	logger       *slog.Logger
	closers      []func()
}

func newApp(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	analyzer, err := newAnalyzer(cfg.Vendor, logger)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := analysis.NewMetrics(reg)
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr, reg)
	}

	opts := []analysis.Option{analysis.WithLogger(logger), analysis.WithMetrics(metrics)}
	arch, err := a.openArchive(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}
	if arch != nil {
		opts = append(opts, analysis.WithArchiver(arch))
	}

	a.orchestrator, err = analysis.New(analyzer, analysis.ConfigFrom(cfg), opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newAnalyzer(cfg common.VendorConfig, logger *slog.Logger) (analysis.Analyzer, error) {
	if cfg.Backend == common.BackendVision {
		logger.Info("using legacy OCR backend", "endpoint", cfg.Endpoint, "enhance_images", cfg.EnhanceImages)
		v, err := docintel.NewVisionAnalyzer(cfg, logger)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	logger.Info("using document intelligence backend", "endpoint", cfg.Endpoint, "api_version", cfg.APIVersion)
	c, err := docintel.NewClient(cfg, docintel.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) openArchive(ctx context.Context, cfg common.ArchiveConfig) (archive.Archiver, error) {
	switch cfg.Backend {
	case common.ArchivePostgres:
		drv, pool, err := archive.OpenPostgres(ctx, archive.Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { closeDriver(drv, pool, a.logger) })
		return a.sqlStore(ctx, drv)
	case common.ArchiveSQLite:
		drv, err := archive.OpenSQLite(ctx, cfg.DSN, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { closeDriver(drv, nil, a.logger) })
		return a.sqlStore(ctx, drv)
	case common.ArchiveGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, common.WrapError(err, "storage client")
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("closing storage client", "error", err)
			}
		})
		return archive.NewGCSStore(client, cfg.Bucket, cfg.Prefix, a.logger), nil
	}
	return nil, nil
}

func (a *app) sqlStore(ctx context.Context, drv *entsql.Driver) (archive.Archiver, error) {
	if err := archive.HealthCheck(ctx, drv, 2*time.Second, a.logger); err != nil {
		return nil, err
	}
	store := archive.NewSQLStore(drv, a.logger)
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func closeDriver(drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) {
	if err := drv.Close(); err != nil {
		logger.Warn("closing archive driver", "error", err)
	}
	if pool != nil {
		pool.Close()
	}
}

func (a *app) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
		}
	}()
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// archive stores the original with its outcome as tags. Failures only log.
func (a *app) archive(ctx context.Context, f entity.BatchFile, oc entity.BatchOutcome, status constants.OutcomeStatus) {
	tags := map[string]string{"status": string(status)}
	if oc.Result != nil {
		tags["type"] = string(oc.Result.DocumentType)
	} else if f.Type != "" {
		tags["type"] = string(f.Type)
	}
	if id := a.orchestrator.Archive(ctx, f.Data, f.FileName, tags); id != "" {
		a.logger.Debug("archived original", "file", f.FileName, "archive_id", id)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
