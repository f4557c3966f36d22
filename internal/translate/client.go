package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/happykoalaa/koala-counseling-server/internal/quota"
)

// ErrNotConfigured is returned when no provider credentials are present.
var ErrNotConfigured = errors.New("translation client not configured")

// ErrQuotaExceeded is returned when a request would push today's translated
// characters past the daily budget. The counter is not incremented.
var ErrQuotaExceeded = errors.New("daily translation character budget exhausted")

// Config contains translation provider configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client calls the external translation API.
type Client struct {
	config     Config
	httpClient *http.Client
	usage      *quota.Tracker
	logger     *slog.Logger
}

// NewClient creates a translation client. Endpoint and API key are required.
func NewClient(cfg Config, usage *quota.Tracker, logger *slog.Logger) (*Client, error) {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		usage:  usage,
		logger: logger,
	}, nil
}

type translateRequest struct {
	Text   string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate converts text into the target language. Empty input or a nil
// client is a no-op that returns the input unchanged. The character budget
// is checked before the provider is called; on success the input length is
// charged to the daily quota.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if c == nil || text == "" {
		return text, nil
	}

	// Character count follows the provider's billing unit: the byte length
	// of the UTF-8 input.
	chars := len(text)
	if !c.usage.CanTranslate(chars) {
		return "", ErrQuotaExceeded
	}

	body, err := json.Marshal(translateRequest{
		Text:   text,
		Target: targetLanguage,
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("translation request encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("translation response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("translation provider returned HTTP %d: %s", resp.StatusCode, respBody)
	}

	var translated translateResponse
	if err := json.Unmarshal(respBody, &translated); err != nil {
		return "", fmt.Errorf("translation response parse failed: %w", err)
	}

	if len(translated.Data.Translations) == 0 {
		return "", fmt.Errorf("translation provider returned no translations")
	}

	c.usage.ConsumeTranslate(chars)

	c.logger.Debug("translation completed",
		slog.String("target", targetLanguage),
		slog.Int("chars", chars),
	)

	return translated.Data.Translations[0].TranslatedText, nil
}
