package ollama

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Provider selects the wire format of the local backend.
const (
	ProviderOllama       = "ollama"       // native /api/generate
	ProviderOpenAICompat = "openai_compat" // /v1/chat/completions (LM Studio, llama.cpp server)
)

// Config for the local backend client.
type Config struct {
	Provider    string        // ProviderOllama (default) or ProviderOpenAICompat
	BaseURL     string        // default http://localhost:11434
	Model       string        // e.g. "llama3.1"
	Temperature float32
	Timeout     time.Duration // transport timeout per request
}

// Client talks to a local LLM backend. Safe for concurrent use: http.Client
// and the breaker are both goroutine-safe, so worker-pool callers share one
// instance without locking.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOllama
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "llm-backend",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
	}
}
