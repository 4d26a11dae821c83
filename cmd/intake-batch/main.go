package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/export"
	"github.com/jmercado-dev/merchant-intake/internal/extract"
	"github.com/jmercado-dev/merchant-intake/internal/ingest"
	"github.com/jmercado-dev/merchant-intake/internal/llm/ollama"
	"github.com/jmercado-dev/merchant-intake/internal/ocr"
	"github.com/jmercado-dev/merchant-intake/internal/pipeline"
	"github.com/jmercado-dev/merchant-intake/internal/repository"
	"github.com/jmercado-dev/merchant-intake/internal/submit"
	"github.com/jmercado-dev/merchant-intake/internal/validate"
)

// printError prints to stderr, falling back to stdout if stderr fails.
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir         = flag.String("dir", "", "directory of onboarding documents to process (required)")
		out         = flag.String("out", "", "output directory for artifacts (overrides config)")
		configPath  = flag.String("config", "", "path to intake.yaml (optional)")
		concurrency = flag.Int("concurrency", 0, "worker count override (0 = from config)")
		doSubmit    = flag.Bool("submit", false, "dispatch accepted records to the CRM gate")
		check       = flag.Bool("check", false, "verify OCR and LLM backends, then exit")
		verbose     = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *out != "" {
		cfg.Export.OutputDir = *out
	}
	if *concurrency > 0 {
		cfg.Pipeline.Concurrency = *concurrency
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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

	if *check {
		os.Exit(runCheck(ctx, extractor, parser, logger))
	}

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	docs, _, err := ingest.ScanDirectory(*dir, logger)
	if err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		logger.Warn("no eligible documents found", "dir", *dir)
		os.Exit(0)
	}

	validator := validate.New(cfg.Validation, logger)
	proc := pipeline.NewProcessor(
		extract.NewOCRAdapter(extractor, logger),
		parser, validator, cfg.Pipeline, logger,
	)
	runner := pipeline.NewBatchRunner(proc, cfg.Pipeline.Concurrency, logger)

	results, runErr := runner.ProcessBatch(ctx, docs)
	if runErr != nil {
		logger.Error("batch stopped early", "error", runErr)
	}

	exporter := export.NewService(cfg.Export, logger)
	art, err := exporter.Export(results)
	if err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}

	if *doSubmit || cfg.Submission.Enabled {
		if err := dispatch(ctx, cfg, results, logger); err != nil {
			logger.Error("submission failed", "error", err)
			os.Exit(1)
		}
	}

	summary := entity.Summarize(results)
	logger.Info("run complete",
		"total", summary.Total,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"accepted", summary.Accepted,
		"rejected", summary.Rejected,
		"needs_review", summary.NeedsReview,
		"json", art.JSONPath,
	)
	if runErr != nil {
		os.Exit(1)
	}
}

// runCheck probes the two external engines and reports readiness.
func runCheck(ctx context.Context, extractor *ocr.Extractor, parser *ollama.Client, logger *slog.Logger) int {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	code := 0
	if err := extractor.Healthcheck(ctx); err != nil {
		logger.Error("check.ocr_failed", "error", err)
		code = 1
	} else {
		logger.Info("check.ocr_ok")
	}
	if err := parser.Ping(ctx); err != nil {
		logger.Error("check.llm_failed", "error", err)
		code = 1
	} else {
		logger.Info("check.llm_ok")
	}
	return code
}

func dispatch(ctx context.Context, cfg *common.Config, results []entity.ProcessedDocument, logger *slog.Logger) error {
	db, err := repository.Open(ctx, cfg.Submission.DBPath, logger)
	if err != nil {
		return err
	}
	defer repository.Close(db, logger)

	gate := submit.NewGate(submit.NewMockSubmitter(), repository.NewSubmissionRepository(db), logger)
	counts, err := gate.DispatchBatch(ctx, results)
	logger.Info("submission complete",
		"submitted", counts[repository.ActionSubmitted],
		"refused", counts[repository.ActionRefused],
		"flagged", counts[repository.ActionFlagged],
	)
	return err
}
