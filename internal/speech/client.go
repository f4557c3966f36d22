package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/happykoalaa/koala-counseling-server/internal/audio"
	"github.com/happykoalaa/koala-counseling-server/internal/quota"
)

// ErrNotConfigured is returned when no provider credentials are present.
var ErrNotConfigured = errors.New("speech recognition client not configured")

// localeByLanguage maps intake form language tags to provider locale codes.
var localeByLanguage = map[string]string{
	"korean":     "ko-KR",
	"russian":    "ru-RU",
	"vietnamese": "vi-VN",
	"chinese":    "zh-CN",
}

// defaultLocale is used for unrecognized language tags. The intake form is
// Korean-first, so unknown tags are transcribed as Korean rather than
// rejected.
const defaultLocale = "ko-KR"

// LocaleFor returns the provider locale code for a language tag.
func LocaleFor(language string) string {
	if locale, ok := localeByLanguage[language]; ok {
		return locale
	}
	return defaultLocale
}

// Config contains speech provider configuration.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client calls the external speech-recognition API.
type Client struct {
	config     Config
	httpClient *http.Client
	usage      *quota.Tracker
	logger     *slog.Logger
}

// NewClient creates a speech client. Endpoint and API key are required;
// without them the service runs in simulation mode and no client is built.
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

// recognizeRequest is the provider request payload. The encoding fields are
// fixed for the intake form's recordings.
type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	SampleRateHertz            int    `json:"sampleRateHertz"`
	AudioChannelCount          int    `json:"audioChannelCount"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type recognizeAudio struct {
	Content string `json:"content"` // base64-encoded bytes
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float32 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends a recording for recognition and returns the transcript.
// On success the estimated audio minutes are charged to the daily quota.
func (c *Client) Transcribe(ctx context.Context, in audio.Input) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}

	payload := recognizeRequest{
		Config: recognizeConfig{
			SampleRateHertz:            audio.SampleRate,
			AudioChannelCount:          1,
			LanguageCode:               LocaleFor(in.Language),
			EnableAutomaticPunctuation: true,
		},
		Audio: recognizeAudio{
			Content: base64.StdEncoding.EncodeToString(in.Data),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("transcription request encode failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcription response read failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription provider returned HTTP %d: %s", resp.StatusCode, respBody)
	}

	var recognized recognizeResponse
	if err := json.Unmarshal(respBody, &recognized); err != nil {
		return "", fmt.Errorf("transcription response parse failed: %w", err)
	}

	// The final transcript is the first alternative of every result, joined
	// in result order.
	parts := make([]string, 0, len(recognized.Results))
	for _, result := range recognized.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	transcript := strings.Join(parts, " ")

	minutes := audio.EstimateMinutes(len(in.Data))
	c.usage.ConsumeSpeech(minutes)

	c.logger.Debug("transcription completed",
		slog.String("locale", LocaleFor(in.Language)),
		slog.Int("audio_bytes", len(in.Data)),
		slog.Float64("estimated_minutes", minutes),
		slog.Int("results", len(recognized.Results)),
	)

	return transcript, nil
}
