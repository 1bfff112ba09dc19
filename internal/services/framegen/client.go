package framegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipflow/internal/services"
)

// JobStatus enumerates the remote job lifecycle.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobReady   JobStatus = "ready"
	JobFailed  JobStatus = "failed"
)

// Frame is a single rendered still reported by the service.
type Frame struct {
	Timestamp float64 `json:"timestamp"`
	URL       string  `json:"url"`
	Filename  string  `json:"filename"`
}

// PollResult is the state of one frame-rendering job.
//
// AudioSourceHandle may be populated while the job is still pending: the
// service exposes the audio track as soon as it is demuxed, well before the
// stills finish rendering.
type PollResult struct {
	Status            JobStatus `json:"status"`
	Progress          float64   `json:"progress"`
	Frames            []Frame   `json:"frames,omitempty"`
	AudioSourceHandle string    `json:"audio_source_handle,omitempty"`
	Cost              float64   `json:"cost,omitempty"`
	Message           string    `json:"message,omitempty"`
}

// Client talks to the frame-rendering service.
type Client struct {
	baseURL    string
	apiKey     string
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

// New creates a frame-rendering service client.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("framegen base url required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Submit starts a frame-rendering job for the supplied video handle.
func (c *Client) Submit(ctx context.Context, videoHandle string) (string, error) {
	if strings.TrimSpace(videoHandle) == "" {
		return "", services.Wrap(services.ErrValidation, "framegen", "submit", "video handle required", nil)
	}

	body, err := json.Marshal(map[string]string{"video_handle": videoHandle})
	if err != nil {
		return "", fmt.Errorf("encode submit request: %w", err)
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/jobs", bytes.NewReader(body), &payload); err != nil {
		return "", err
	}
	if payload.JobID == "" {
		return "", services.Wrap(services.ErrExternalService, "framegen", "submit", "service returned empty job id", nil)
	}
	return payload.JobID, nil
}

// Poll fetches the current state of a frame-rendering job.
func (c *Client) Poll(ctx context.Context, jobID string) (PollResult, error) {
	if strings.TrimSpace(jobID) == "" {
		return PollResult{}, services.Wrap(services.ErrValidation, "framegen", "poll", "job id required", nil)
	}

	var result PollResult
	if err := c.doJSON(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil, &result); err != nil {
		return PollResult{}, err
	}
	switch result.Status {
	case JobPending, JobReady, JobFailed:
	default:
		return PollResult{}, services.Wrap(services.ErrExternalService, "framegen", "poll",
			fmt.Sprintf("unknown job status %q", result.Status), nil)
	}
	return result, nil
}

// ProbeAudio checks whether the audio source behind a handle is fetchable.
// The probe is read-only; it never triggers work on the service side.
func (c *Client) ProbeAudio(ctx context.Context, audioHandle string) error {
	if strings.TrimSpace(audioHandle) == "" {
		return services.Wrap(services.ErrValidation, "framegen", "probe audio", "audio handle required", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/audio/"+url.PathEscape(audioHandle), nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("probe audio", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return statusError("probe audio", resp.StatusCode, "")
}

// Upload pushes a local video file to the service and returns its handle.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "framegen", "upload", "open video file", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError("upload", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("upload", resp.StatusCode, readSnippet(resp.Body))
	}

	var payload struct {
		VideoHandle string `json:"video_handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternalService, "framegen", "upload", "decode response", err)
	}
	if payload.VideoHandle == "" {
		return "", services.Wrap(services.ErrExternalService, "framegen", "upload", "service returned empty video handle", nil)
	}
	return payload.VideoHandle, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(method+" "+path, resp.StatusCode, readSnippet(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternalService, "framegen", method+" "+path, "decode response", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func transportError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "framegen", operation, "request timed out", err)
	}
	return services.Wrap(services.ErrTransient, "framegen", operation, "request failed", err)
}

func statusError(operation string, code int, detail string) error {
	msg := fmt.Sprintf("status %d", code)
	if detail != "" {
		msg += ": " + detail
	}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "framegen", operation, msg, nil)
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "framegen", operation, msg, nil)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return services.Wrap(services.ErrValidation, "framegen", operation, msg, nil)
	case code == http.StatusPaymentRequired || code == http.StatusTooManyRequests:
		return services.Wrap(services.ErrExternalService, "framegen", operation, msg, nil)
	case code >= 500:
		return services.Wrap(services.ErrTransient, "framegen", operation, msg, nil)
	default:
		return services.Wrap(services.ErrExternalService, "framegen", operation, msg, nil)
	}
}

func readSnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
