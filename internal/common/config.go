package common

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the immutable per-run configuration snapshot. It is built once
// (file + INTAKE_* env + defaults) and passed into constructors; no stage
// reads configuration from anywhere else.
type Config struct {
	OCR        OCRConfig
	LLM        LLMConfig
	Pipeline   PipelineConfig
	Validation ValidationConfig
	Export     ExportConfig
	Submission SubmissionConfig
}

// OCRConfig configures the exec-based OCR engine.
type OCRConfig struct {
	Pdftotext string // binary name or absolute path
	Pdftoppm  string
	Tesseract string
	Lang      string // tesseract language, default "eng"
	DPI       int    // rasterization DPI for scanned PDFs
	MaxPages  int    // 0 = no limit
}

// LLMConfig configures the local language-model backend.
type LLMConfig struct {
	Provider    string // "ollama" | "openai_compat"
	BaseURL     string // e.g. http://localhost:11434
	Model       string
	Temperature float32
	Timeout     time.Duration // transport timeout, distinct from stage timeout
}

// PipelineConfig configures orchestration: concurrency, per-stage timeouts,
// and the retry policy for transient failures.
type PipelineConfig struct {
	Concurrency     int
	ExtractTimeout  time.Duration
	ParseTimeout    time.Duration
	ValidateTimeout time.Duration
	MaxRetries      int           // extra attempts after the first
	RetryBackoff    time.Duration // base backoff, doubled per attempt
}

// ValidationConfig holds the tunable business thresholds. The review band is
// deliberately configuration, not a constant.
type ValidationConfig struct {
	MinFieldConfidence float32 // required field below this counts as an error
	ReviewBandLow      float32 // [low, high) => needs review
	ReviewBandHigh     float32
	MaxRequestedAmount float64 // sanity bound for funding amounts
}

// ExportConfig configures artifact output.
type ExportConfig struct {
	OutputDir string
}

// SubmissionConfig configures the CRM gate and its audit log.
type SubmissionConfig struct {
	Enabled bool
	DBPath  string // SQLite file; ":memory:" for ephemeral runs
}

// LoadConfig reads intake.yaml (optional, from cwd or configPath) merged with
// INTAKE_* environment variables over the defaults below.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("intake")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("INTAKE")
	v.AutomaticEnv()

	setDefaults(v)

	// A missing implicit config file is fine; an explicit one must exist.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		OCR: OCRConfig{
			Pdftotext: v.GetString("ocr.pdftotext"),
			Pdftoppm:  v.GetString("ocr.pdftoppm"),
			Tesseract: v.GetString("ocr.tesseract"),
			Lang:      v.GetString("ocr.lang"),
			DPI:       v.GetInt("ocr.dpi"),
			MaxPages:  v.GetInt("ocr.max_pages"),
		},
		LLM: LLMConfig{
			Provider:    v.GetString("llm.provider"),
			BaseURL:     v.GetString("llm.base_url"),
			Model:       v.GetString("llm.model"),
			Temperature: float32(v.GetFloat64("llm.temperature")),
			Timeout:     v.GetDuration("llm.timeout"),
		},
		Pipeline: PipelineConfig{
			Concurrency:     v.GetInt("pipeline.concurrency"),
			ExtractTimeout:  v.GetDuration("pipeline.extract_timeout"),
			ParseTimeout:    v.GetDuration("pipeline.parse_timeout"),
			ValidateTimeout: v.GetDuration("pipeline.validate_timeout"),
			MaxRetries:      v.GetInt("pipeline.max_retries"),
			RetryBackoff:    v.GetDuration("pipeline.retry_backoff"),
		},
		Validation: ValidationConfig{
			MinFieldConfidence: float32(v.GetFloat64("validation.min_field_confidence")),
			ReviewBandLow:      float32(v.GetFloat64("validation.review_band_low")),
			ReviewBandHigh:     float32(v.GetFloat64("validation.review_band_high")),
			MaxRequestedAmount: v.GetFloat64("validation.max_requested_amount"),
		},
		Export: ExportConfig{
			OutputDir: v.GetString("export.output_dir"),
		},
		Submission: SubmissionConfig{
			Enabled: v.GetBool("submission.enabled"),
			DBPath:  v.GetString("submission.db_path"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.max_pages", 0)

	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "llama3.1")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", 45*time.Second)

	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.extract_timeout", 2*time.Minute)
	v.SetDefault("pipeline.parse_timeout", 90*time.Second)
	v.SetDefault("pipeline.validate_timeout", 10*time.Second)
	v.SetDefault("pipeline.max_retries", 2)
	v.SetDefault("pipeline.retry_backoff", 500*time.Millisecond)

	v.SetDefault("validation.min_field_confidence", 0.40)
	v.SetDefault("validation.review_band_low", 0.40)
	v.SetDefault("validation.review_band_high", 0.75)
	v.SetDefault("validation.max_requested_amount", 5_000_000)

	v.SetDefault("export.output_dir", "output")

	v.SetDefault("submission.enabled", false)
	v.SetDefault("submission.db_path", "output/submissions.db")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("config: llm.base_url is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.Provider != "openai_compat" {
		return fmt.Errorf("config: unknown llm.provider %q", c.LLM.Provider)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("config: pipeline.concurrency must be >= 1")
	}
	if c.Validation.ReviewBandLow > c.Validation.ReviewBandHigh {
		return fmt.Errorf("config: review band low > high")
	}
	if c.Validation.MaxRequestedAmount <= 0 {
		return fmt.Errorf("config: validation.max_requested_amount must be positive")
	}
	return nil
}
