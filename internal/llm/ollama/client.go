package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/jmercado-dev/merchant-intake/constants"
	"github.com/jmercado-dev/merchant-intake/internal/common"
	"github.com/jmercado-dev/merchant-intake/internal/entity"
	"github.com/jmercado-dev/merchant-intake/internal/llm"
)

// ParseFields implements llm.FieldParser against a local backend. The raw
// (sanitized) model JSON is returned for audit logging even on failure.
func (c *Client) ParseFields(ctx context.Context, req llm.ParseRequest) (entity.ParsedRecord, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	fields := constants.FieldsFor(req.DocType)
	schema := llm.BuildRecordJSONSchema(fields)

	c.logger.Info("llm.parse.start",
		"req_id", rid,
		"provider", c.cfg.Provider,
		"model", c.cfg.Model,
		"doc_type", string(req.DocType),
		"text_len", len(req.Text),
		"fields", len(fields),
	)

	content, err := c.complete(ctx, req, schema)
	if err != nil {
		c.logger.Error("llm.parse.backend_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ParsedRecord{}, nil, err
	}

	cleaned, adjusted, err := llm.NormalizeRawRecord(content, fields)
	if err != nil {
		c.logger.Error("llm.parse.undecodable",
			"req_id", rid, "error", err, "raw_bytes", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ParsedRecord{}, content,
			common.NewStageError("parse", common.FailureMalformedResponse, err)
	}
	if len(adjusted) > 0 {
		c.logger.Warn("llm.parse.sanitized", "req_id", rid, "adjustments", adjusted)
	}

	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.logger.Error("llm.parse.schema_validation_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ParsedRecord{}, cleaned,
			common.NewStageError("parse", common.FailureMalformedResponse, err)
	}

	rec, err := llm.DecodeRecord(req.DocType, c.cfg.Model, cleaned)
	if err != nil {
		return entity.ParsedRecord{}, cleaned,
			common.NewStageError("parse", common.FailureMalformedResponse, err)
	}

	c.logger.Info("llm.parse.ok",
		"req_id", rid,
		"model_confidence", rec.ModelConfidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return rec, cleaned, nil
}

// Ping probes the backend's model listing endpoint.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/tags"
	if c.cfg.Provider == ProviderOpenAICompat {
		endpoint = strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/models"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("llm.ping.body_close_error", "error", cerr)
		}
	}()
	if resp.StatusCode/100 != 2 {
		return common.NewStageError("parse", common.FailureEngineUnavailable,
			fmt.Errorf("backend status %d", resp.StatusCode))
	}
	return nil
}

// complete sends one generation request and returns the model's message
// content, through the circuit breaker.
func (c *Client) complete(ctx context.Context, req llm.ParseRequest, schema map[string]any) ([]byte, error) {
	sys := llm.BuildSystemPrompt(req.DocType, constants.FieldsFor(req.DocType))
	user := llm.BuildUserPrompt(req, schema)

	var endpoint string
	var body map[string]any
	switch c.cfg.Provider {
	case ProviderOpenAICompat:
		endpoint = strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/chat/completions"
		body = map[string]any{
			"model":           c.cfg.Model,
			"temperature":     c.cfg.Temperature,
			"stream":          false,
			"response_format": map[string]any{"type": "json_object"},
			"messages": []map[string]any{
				{"role": "system", "content": sys},
				{"role": "user", "content": user},
			},
		}
	default:
		endpoint = strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
		body = map[string]any{
			"model":  c.cfg.Model,
			"prompt": sys + "\n\n" + user,
			"stream": false,
			"format": "json",
			"options": map[string]any{
				"temperature": c.cfg.Temperature,
			},
		}
	}

	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.post(ctx, endpoint, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, common.NewStageError("parse", common.FailureEngineUnavailable, err)
		}
		return nil, err
	}

	return c.extractContent(raw)
}

// extractContent pulls the message text out of the provider envelope.
func (c *Client) extractContent(raw []byte) ([]byte, error) {
	switch c.cfg.Provider {
	case ProviderOpenAICompat:
		var cc struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &cc); err != nil {
			return nil, common.NewStageError("parse", common.FailureMalformedResponse,
				fmt.Errorf("decode completion envelope: %w", err))
		}
		if len(cc.Choices) == 0 {
			return nil, common.NewStageError("parse", common.FailureMalformedResponse,
				fmt.Errorf("no choices in completion response"))
		}
		return []byte(strings.TrimSpace(cc.Choices[0].Message.Content)), nil
	default:
		var gr struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(raw, &gr); err != nil {
			return nil, common.NewStageError("parse", common.FailureMalformedResponse,
				fmt.Errorf("decode generate envelope: %w", err))
		}
		if strings.TrimSpace(gr.Response) == "" {
			return nil, common.NewStageError("parse", common.FailureMalformedResponse,
				fmt.Errorf("empty response field"))
		}
		return []byte(strings.TrimSpace(gr.Response)), nil
	}
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("llm.http.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(err)
	}
	if resp.StatusCode/100 != 2 {
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, common.NewStageError("parse", common.FailureEngineUnavailable,
				fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(raw, 256)))
		}
		return nil, common.NewStageError("parse", common.FailureMalformedResponse,
			fmt.Errorf("backend status %d: %s", resp.StatusCode, truncate(raw, 256)))
	}
	return raw, nil
}

// classify maps transport errors onto the stage failure taxonomy.
func (c *Client) classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewStageError("parse", common.FailureTimeout, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return common.NewStageError("parse", common.FailureConnectionRefused, err)
	default:
		// unknown transport trouble: treat as refused so it is retried
		return common.NewStageError("parse", common.FailureConnectionRefused, err)
	}
}

func truncate(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
