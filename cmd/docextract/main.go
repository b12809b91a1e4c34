package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/async"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/export"
	"github.com/joseph-ayodele/docextract/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional)")
		envFile    = flag.String("env", ".env", "dotenv file loaded before the environment is read")
		dir        = flag.String("dir", "", "directory of documents to analyze")
		file       = flag.String("file", "", "single document to analyze")
		docType    = flag.String("type", "", "document type hint: invoice, receipt or document")
		out        = flag.String("out", "", "output XLSX path (defaults to docextract.xlsx next to --dir)")
		watch      = flag.Bool("watch", false, "keep running and analyze files as they appear under --dir")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if (*dir == "") == (*file == "") {
		printError("Error: exactly one of --dir or --file is required\n")
		os.Exit(2)
	}
	if *watch && *dir == "" {
		printError("Error: --watch needs --dir\n")
		os.Exit(2)
	}
	if *docType != "" {
		if _, ok := constants.CanonicalizeDocumentType(*docType); !ok {
			printError("Error: unknown --type %q (use %s)\n", *docType, strings.Join(constants.DocumentTypesAsStrings(), ", "))
			os.Exit(2)
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		printError("Error: loading %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := ingest.Options{SkipHidden: *skipHidden}
	if *watch {
		if err := a.watch(ctx, *dir, opts, *docType); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watch stopped", "error", err)
			os.Exit(1)
		}
		return
	}

	var files []entity.BatchFile
	if *file != "" {
		f, err := ingest.ReadFile(*file, opts)
		if err != nil {
			logger.Error("failed to read file", "path", *file, "error", err)
			os.Exit(1)
		}
		files = []entity.BatchFile{f}
	} else {
		var stats ingest.DirStats
		var failures []ingest.FileError
		files, stats, failures, err = ingest.CollectDirectory(ctx, *dir, opts, logger)
		if err != nil {
			logger.Error("failed to collect directory", "dir", *dir, "error", err)
			os.Exit(1)
		}
		for _, f := range failures {
			logger.Warn("skipped file", "path", f.Path, "error", f.Err)
		}
		logger.Info("collection complete", "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	}
	if *docType != "" {
		dt, _ := constants.CanonicalizeDocumentType(*docType)
		for i := range files {
			files[i].Type = dt
		}
	}

	outcomes := a.orchestrator.BatchProcess(ctx, files, cfg.Batch.MaxConcurrent)
	exporter := export.NewService(cfg.Extract.MinConfidence, logger)
	for i, oc := range outcomes {
		a.archive(ctx, files[i], oc, exporter.Status(oc))
	}

	if *out == "" {
		base := *dir
		if base == "" {
			base = filepath.Dir(*file)
		}
		*out = filepath.Join(filepath.Dir(filepath.Clean(base)), "docextract.xlsx")
	}
	xlsx, err := exporter.ExportBatchXLSX(ctx, outcomes)
	if err != nil {
		logger.Error("failed to export", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	counts := map[constants.OutcomeStatus]int{}
	for _, oc := range outcomes {
		counts[exporter.Status(oc)]++
	}
	logger.Info("batch processing complete", "files", len(outcomes), "output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files: %d\n", len(outcomes))
	fmt.Printf("- OK: %d, low confidence: %d, no items: %d, failed: %d\n",
		counts[constants.OutcomeOK], counts[constants.OutcomeLowConf], counts[constants.OutcomeNoItems], counts[constants.OutcomeFailed])
	fmt.Printf("- Output: %s\n", *out)
	if counts[constants.OutcomeFailed] > 0 {
		a.Close()
		stop()
		os.Exit(3)
	}
}

// watch feeds files reported by the watcher to a worker queue until ctx
// is done, then lets the queue drain.
func (a *app) watch(ctx context.Context, dir string, opts ingest.Options, hint string) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{dir},
		Options:     opts,
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, a.logger)
	if err != nil {
		return err
	}

	exporter := export.NewService(a.cfg.Extract.MinConfidence, a.logger)
	queue := async.NewQueue(func(jctx context.Context, job async.Job) error {
		return a.analyzeFile(jctx, job, opts, exporter)
	}, a.logger,
		async.WithWorkers(a.cfg.Batch.MaxConcurrent),
		async.WithProcessTimeout(5*a.cfg.Vendor.Timeout),
	)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Vendor.Timeout)
		defer cancel()
		queue.Shutdown(sctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok {
				a.logger.Warn("watcher error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if err := queue.Enqueue(ctx, async.Job{Path: path, Hint: hint}); err != nil {
				return err
			}
		}
	}
}

func (a *app) analyzeFile(ctx context.Context, job async.Job, opts ingest.Options, exporter *export.Service) error {
	f, err := ingest.ReadFile(job.Path, opts)
	if err != nil {
		return err
	}
	if dt, ok := constants.CanonicalizeDocumentType(job.Hint); ok {
		f.Type = dt
	}
	ctx = common.WithRequestID(ctx, job.TraceID)
	res, err := a.orchestrator.Analyze(ctx, f.Data, f.FileName, string(f.Type))
	oc := entity.BatchOutcome{FileName: f.FileName, Result: res, Err: err}
	status := exporter.Status(oc)
	a.archive(ctx, f, oc, status)
	if err != nil {
		return fmt.Errorf("analyze %s (%s): %w", f.FileName, common.StatusCodeName(err), err)
	}
	a.logger.Info("analysis complete",
		"req_id", job.TraceID,
		"path", job.Path,
		"status", string(status),
		"type", string(res.DocumentType),
		"confidence", res.Confidence,
		"items", len(res.Items),
	)
	return nil
}
