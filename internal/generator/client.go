package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const generatePath = "/api/generate"

// ErrUnavailable marks transport failures and 5xx responses that survived every retry.
var ErrUnavailable = errors.New("generator unavailable")

// UpstreamError reports a generator that answered but refused to produce a schedule.
type UpstreamError struct {
	Status  int
	Message string
	Details []string
}

func (e *UpstreamError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("generator: %s", e.Message)
	}
	return fmt.Sprintf("generator: %s: %s", e.Message, strings.Join(e.Details, "; "))
}

// Config tunes the HTTP client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// RatePerSecond throttles outgoing calls; zero disables throttling.
	RatePerSecond float64
}

// Client calls the external optimisation service.
type Client struct {
	baseURL    string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient constructs a generator client.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       httpClient,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		limiter:    limiter,
		logger:     logger,
	}
}

// Generate posts the request and decodes the produced schedule.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generator request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.retryDelay * time.Duration(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, retryable, err := c.do(ctx, body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.logger.Warn("generator call failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.retries+1),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (*Result, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build generator request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read generator response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("generator status %d", resp.StatusCode)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, &UpstreamError{Status: resp.StatusCode, Message: "malformed response"}
	}
	result, err := Decode(payload)
	if err != nil {
		return nil, false, &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}
	if resp.StatusCode >= http.StatusBadRequest || result.Error != "" {
		message := result.Error
		if message == "" {
			message = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, false, &UpstreamError{Status: resp.StatusCode, Message: message, Details: result.Conflicts}
	}
	return result, false, nil
}

// Decode maps a loosely typed generator payload onto Result. Levels and counts
// may arrive as numbers or strings.
func Decode(payload map[string]interface{}) (*Result, error) {
	var result Result
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &result,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode generator response: %w", err)
	}
	return &result, nil
}
