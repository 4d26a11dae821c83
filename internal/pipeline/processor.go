package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/extract"
	"github.com/jmercado-dev/merchant-intake/internal/llm"
	"github.com/jmercado-dev/merchant-intake/internal/validate"
)

// Processor runs one document through extract -> parse -> validate. Stateless
// between documents; the batch runner shares a single Processor across
// workers.
type Processor struct {
	extractor extract.TextExtractor
	parser    llm.FieldParser
	validator *validate.Validator
	cfg       common.PipelineConfig
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewProcessor(
	extractor extract.TextExtractor,
	parser llm.FieldParser,
	validator *validate.Validator,
	cfg common.PipelineConfig,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 2 * time.Minute
	}
	if cfg.ParseTimeout <= 0 {
		cfg.ParseTimeout = 90 * time.Second
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = 10 * time.Second
	}
	return &Processor{
		extractor: extractor,
		parser:    parser,
		validator: validator,
		cfg:       cfg,
		retry:     NewRetryPolicy(cfg),
		logger:    logger,
	}
}

// Process runs the full state machine for one document. A non-nil error is
// returned only for environment failures; everything else terminalizes the
// document as Failed (or Complete with a degraded record) and returns nil.
//
// Stage timeouts are applied over context.WithoutCancel so a batch-level
// cancel never truncates a stage attempt already in flight; cancellation is
// honored at the stage boundaries instead.
func (p *Processor) Process(ctx context.Context, doc entity.Document) (entity.ProcessedDocument, error) {
	out := entity.ProcessedDocument{
		Document:  doc,
		Status:    constants.StatusPending,
		StartedAt: time.Now().UTC(),
	}
	log := p.logger.With("doc_id", doc.ID.String(), "file", doc.FileName())

	// Stage 1: extract.
	p.transition(&out, constants.StatusExtracting, log)
	var extRes entity.ExtractionResult
	attempts, err := p.retry.Do(ctx, "extract", log, func(parent context.Context) error {
		stageCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.cfg.ExtractTimeout)
		defer cancel()
		var e error
		extRes, e = p.extractor.Extract(stageCtx, doc.SourcePath, doc.Type)
		return e
	})
	out.Attempts.Extract = attempts
	if err != nil {
		return p.fail(&out, "extract", err, log)
	}
	out.Extraction = &extRes
	if strings.TrimSpace(extRes.Text()) == "" {
		return p.fail(&out, "extract",
			common.NewStageError("extract", common.FailureCorruptFile,
				fmt.Errorf("no text recoverable from %s", doc.FileName())), log)
	}

	// The filename guess may be wrong; the extracted text gets the final say.
	refined := constants.RefineFromText(out.Document.Type, extRes.Text())
	if refined != out.Document.Type {
		log.Info("pipeline.doc_type_refined",
			"from", string(out.Document.Type), "to", string(refined))
		out.Document.Type = refined
	}

	if err := ctx.Err(); err != nil {
		return p.fail(&out, "extract", err, log)
	}

	// Stage 2: parse.
	p.transition(&out, constants.StatusParsing, log)
	var rec entity.ParsedRecord
	attempts, err = p.retry.Do(ctx, "parse", log, func(parent context.Context) error {
		stageCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.cfg.ParseTimeout)
		defer cancel()
		var e error
		rec, _, e = p.parser.ParseFields(stageCtx, llm.ParseRequest{
			Text:         extRes.Text(),
			DocType:      out.Document.Type,
			FilenameHint: doc.FileName(),
		})
		return e
	})
	out.Attempts.Parse = attempts
	if err != nil {
		if common.KindOf(err) != common.FailureMalformedResponse {
			return p.fail(&out, "parse", err, log)
		}
		// Undecodable model output degrades to an all-missing record so the
		// required-field rules can report exactly what is absent.
		log.Warn("pipeline.parse_degraded", "error", err)
		rec = entity.EmptyRecord(out.Document.Type)
		rec.Warnings = append(rec.Warnings, "model response was malformed; all fields defaulted to missing")
	}
	out.Record = &rec

	if err := ctx.Err(); err != nil {
		return p.fail(&out, "parse", err, log)
	}

	// Stage 3: validate. Rules run in-process but bounded anyway; a wedged
	// rule must not hold a worker slot forever.
	p.transition(&out, constants.StatusValidating, log)
	findings, outcome, err := p.validateBounded(rec)
	if err != nil {
		return p.fail(&out, "validate", err, log)
	}
	out.Findings = findings
	out.Outcome = outcome

	p.transition(&out, constants.StatusComplete, log)
	out.FinishedAt = time.Now().UTC()
	log.Info("pipeline.document_done",
		"status", string(out.Status),
		"outcome", string(out.Outcome),
		"errors", out.ErrorCount(),
		"warnings", out.WarningCount(),
		"elapsed_ms", out.FinishedAt.Sub(out.StartedAt).Milliseconds(),
	)
	return out, nil
}

func (p *Processor) validateBounded(rec entity.ParsedRecord) ([]entity.Finding, constants.Outcome, error) {
	type result struct {
		findings []entity.Finding
		outcome  constants.Outcome
	}
	done := make(chan result, 1)
	go func() {
		f, o := p.validator.Validate(rec)
		done <- result{f, o}
	}()
	select {
	case r := <-done:
		return r.findings, r.outcome, nil
	case <-time.After(p.cfg.ValidateTimeout):
		return nil, "", common.NewStageError("validate", common.FailureTimeout,
			fmt.Errorf("validation exceeded %s", p.cfg.ValidateTimeout))
	}
}

// transition enforces the forward-only state machine. An illegal transition
// is a programming error and panics.
func (p *Processor) transition(doc *entity.ProcessedDocument, next constants.ProcessingStatus, log *slog.Logger) {
	if !doc.Status.CanTransition(next) {
		panic(fmt.Sprintf("illegal status transition %s -> %s", doc.Status, next))
	}
	log.Debug("pipeline.status", "from", string(doc.Status), "to", string(next))
	doc.Status = next
}

// fail terminalizes the document. Environment failures additionally return
// the error so the batch runner can stop the run.
func (p *Processor) fail(doc *entity.ProcessedDocument, stage string, err error, log *slog.Logger) (entity.ProcessedDocument, error) {
	kind := common.KindOf(err)
	doc.Status = constants.StatusFailed
	doc.FailureKind = string(kind)
	doc.FailureReason = err.Error()
	doc.FinishedAt = time.Now().UTC()
	log.Error("pipeline.document_failed",
		"stage", stage,
		"kind", string(kind),
		"error", err,
	)
	if kind == common.FailureEnvironment {
		return *doc, err
	}
	return *doc, nil
}
