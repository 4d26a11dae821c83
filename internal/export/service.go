package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
)

// Artifacts lists the files one export run produced.
type Artifacts struct {
	JSONPath string
	CSVPath  string
	XLSXPath string
}

// Service is a small façade that renders all batch artifacts into the output
// directory.
type Service struct {
	cfg    common.ExportConfig
	logger *slog.Logger
}

func NewService(cfg common.ExportConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return &Service{cfg: cfg, logger: logger}
}

// Export writes results.json, summary.csv and review.xlsx for the batch.
// Existing artifacts from a previous run are overwritten.
func (s *Service) Export(docs []entity.ProcessedDocument) (Artifacts, error) {
	start := time.Now()
	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return Artifacts{}, common.NewStageError("export", common.FailureEnvironment,
			fmt.Errorf("create output dir: %w", err))
	}

	art := Artifacts{
		JSONPath: filepath.Join(s.cfg.OutputDir, "results.json"),
		CSVPath:  filepath.Join(s.cfg.OutputDir, "summary.csv"),
		XLSXPath: filepath.Join(s.cfg.OutputDir, "review.xlsx"),
	}

	blob, err := MarshalBatch(docs, start)
	if err != nil {
		return Artifacts{}, fmt.Errorf("render json: %w", err)
	}
	if err := os.WriteFile(art.JSONPath, blob, 0o644); err != nil {
		return Artifacts{}, common.NewStageError("export", common.FailureEnvironment, err)
	}

	cf, err := os.Create(art.CSVPath)
	if err != nil {
		return Artifacts{}, common.NewStageError("export", common.FailureEnvironment, err)
	}
	if err := WriteCSV(cf, docs); err != nil {
		_ = cf.Close()
		return Artifacts{}, fmt.Errorf("render csv: %w", err)
	}
	if err := cf.Close(); err != nil {
		return Artifacts{}, common.NewStageError("export", common.FailureEnvironment, err)
	}

	wb, err := BuildXLSX(docs)
	if err != nil {
		return Artifacts{}, fmt.Errorf("render xlsx: %w", err)
	}
	if err := os.WriteFile(art.XLSXPath, wb, 0o644); err != nil {
		return Artifacts{}, common.NewStageError("export", common.FailureEnvironment, err)
	}

	s.logger.Info("export.ok",
		"documents", len(docs),
		"json", art.JSONPath,
		"csv", art.CSVPath,
		"xlsx", art.XLSXPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return art, nil
}
