package speech

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

	"clipflow/internal/services"
)

// TimedSegment is one upstream segment with word timing, when the service
// provides it.
type TimedSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Result is a completed transcription.
//
// Segments is empty when the service only returns plain text; callers must
// fall back to proportional word allocation in that case.
type Result struct {
	Text     string         `json:"text"`
	Segments []TimedSegment `json:"segments,omitempty"`
	Cost     float64        `json:"cost"`
}

// Client talks to the speech-to-text service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a speech-to-text client.
func New(baseURL, apiKey, model string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("speech base url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Transcribe runs the whole audio source through the service in one call.
// The service fetches the audio itself from the supplied handle, so repeated
// invocations with the same handle are idempotent on its side.
func (c *Client) Transcribe(ctx context.Context, audioHandle string) (Result, error) {
	if strings.TrimSpace(audioHandle) == "" {
		return Result{}, services.Wrap(services.ErrValidation, "speech", "transcribe", "audio handle required", nil)
	}

	body, err := json.Marshal(map[string]string{
		"audio_source_handle": audioHandle,
		"model":               c.model,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode transcribe request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transcriptions", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, services.Wrap(services.ErrTimeout, "speech", "transcribe", "request timed out", err)
		}
		return Result{}, services.Wrap(services.ErrTransient, "speech", "transcribe", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, statusError(resp.StatusCode, readSnippet(resp.Body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, "speech", "transcribe", "decode response", err)
	}
	if strings.TrimSpace(result.Text) == "" && len(result.Segments) == 0 {
		return Result{}, services.Wrap(services.ErrExternalService, "speech", "transcribe", "service returned empty transcript", nil)
	}
	return result, nil
}

func statusError(code int, detail string) error {
	msg := fmt.Sprintf("status %d", code)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "speech", "transcribe", msg, nil)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return services.Wrap(services.ErrValidation, "speech", "transcribe", msg, nil)
	case code == http.StatusPaymentRequired || code == http.StatusTooManyRequests:
		return services.Wrap(services.ErrExternalService, "speech", "transcribe", msg, nil)
	case code >= 500:
		return services.Wrap(services.ErrTransient, "speech", "transcribe", msg, nil)
	default:
		return services.Wrap(services.ErrExternalService, "speech", "transcribe", msg, nil)
	}
}

func readSnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
