package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmercado-dev/merchant-intake/internal/async"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/extract"
	"github.com/jmercado-dev/merchant-intake/internal/ingest"
	"github.com/jmercado-dev/merchant-intake/internal/llm/ollama"
	"github.com/jmercado-dev/merchant-intake/internal/ocr"
	"github.com/jmercado-dev/merchant-intake/internal/pipeline"
	"github.com/jmercado-dev/merchant-intake/internal/repository"
	"github.com/jmercado-dev/merchant-intake/internal/submit"
	"github.com/jmercado-dev/merchant-intake/internal/validate"
)

// intaked watches a drop folder and runs every new document through the
// pipeline, dispatching terminal results to the submission gate.
func main() {
	var (
		watchDir   = flag.String("watch", "", "drop folder to watch (required)")
		configPath = flag.String("config", "", "path to intake.yaml (optional)")
		scan       = flag.Bool("scan", true, "process files already present at startup")
		debounce   = flag.Duration("debounce", 2*time.Second, "quiet period before a changed file is enqueued")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *watchDir == "" {
		if _, err := fmt.Fprintln(os.Stderr, "Error: --watch is required"); err != nil {
			fmt.Println("Error: --watch is required")
		}
		os.Exit(1)
	}

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Tesseract: cfg.OCR.Tesseract,
		Lang:      cfg.OCR.Lang,
		DPI:       cfg.OCR.DPI,
		MaxPages:  cfg.OCR.MaxPages,
	}, logger)
	parser := ollama.NewClient(ollama.Config{
		Provider:    cfg.LLM.Provider,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	validator := validate.New(cfg.Validation, logger)
	proc := pipeline.NewProcessor(
		extract.NewOCRAdapter(extractor, logger),
		parser, validator, cfg.Pipeline, logger,
	)

	db, err := repository.Open(ctx, cfg.Submission.DBPath, logger)
	if err != nil {
		logger.Error("audit db open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)
	gate := submit.NewGate(submit.NewMockSubmitter(), repository.NewSubmissionRepository(db), logger)

	sink := func(sctx context.Context, doc entity.ProcessedDocument) {
		if _, err := gate.Dispatch(sctx, doc); err != nil {
			logger.Error("dispatch failed", "file", doc.Document.FileName(), "error", err)
		}
	}
	queue := async.NewProcessorQueue(proc, sink, logger,
		async.WithWorkers(cfg.Pipeline.Concurrency),
	)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{*watchDir},
		InitialScan: *scan,
		Debounce:    *debounce,
	}, logger)
	if err != nil {
		logger.Error("watcher start failed", "error", err)
		os.Exit(1)
	}
	logger.Info("intaked started", "watch", *watchDir, "workers", cfg.Pipeline.Concurrency)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			queue.Shutdown(shutdownCtx)
			cancel()
			return
		case path, ok := <-events:
			if !ok {
				continue
			}
			_ = queue.Enqueue(ctx, async.Job{Document: entity.NewDocument(path)})
		case werr, ok := <-errs:
			if ok && werr != nil {
				logger.Error("watcher error", "error", werr)
			}
		}
	}
}
