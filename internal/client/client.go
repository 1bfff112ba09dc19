// Package client is the HTTP client for the daemon API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipflow/internal/api"
	"clipflow/internal/session"
)

// Client talks to a running clipflow daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a client for the daemon listening at bind (host:port).
func New(bind string) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(bind),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx daemon response.
type APIError struct {
	StatusCode int
	Message    string
	Hint       string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Hint)
	}
	return e.Message
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.get(ctx, "/api/status", &out)
	return out, err
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/shutdown", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	return nil
}

// Submit starts processing for an already-uploaded video handle.
func (c *Client) Submit(ctx context.Context, videoHandle string, durationSeconds float64) (session.Snapshot, error) {
	var out api.SessionResponse
	err := c.post(ctx, "/api/sessions", api.SubmitRequest{
		VideoHandle:     videoHandle,
		DurationSeconds: durationSeconds,
	}, &out)
	return out.Session, err
}

// List returns all sessions, newest first.
func (c *Client) List(ctx context.Context) ([]session.Snapshot, error) {
	var out api.SessionListResponse
	err := c.get(ctx, "/api/sessions", &out)
	return out.Sessions, err
}

// Get returns one session snapshot.
func (c *Client) Get(ctx context.Context, id string) (session.Snapshot, error) {
	var out api.SessionResponse
	err := c.get(ctx, "/api/sessions/"+id, &out)
	return out.Session, err
}

// Transcription fetches the segmented transcript. When the transcript is not
// ready yet it returns the pending payload instead; exactly one of the two
// results is non-nil on success.
func (c *Client) Transcription(ctx context.Context, id string) (*api.TranscriptionResult, *api.TranscriptionPending, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/transcription", nil)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var result api.TranscriptionResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, nil, fmt.Errorf("decode transcription: %w", err)
		}
		return &result, nil, nil
	case http.StatusAccepted:
		var pending api.TranscriptionPending
		if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
			return nil, nil, fmt.Errorf("decode transcription status: %w", err)
		}
		return nil, &pending, nil
	default:
		return nil, nil, decodeError(resp)
	}
}

// Retry requests a manual retry of one section.
func (c *Client) Retry(ctx context.Context, id string, section string) (session.Snapshot, error) {
	var out api.SessionResponse
	err := c.post(ctx, "/api/sessions/"+id+"/retry", api.RetryRequest{Section: section}, &out)
	return out.Session, err
}

// SRT downloads the transcript in SubRip format. It returns the pending
// payload when the transcript is not ready.
func (c *Client) SRT(ctx context.Context, id string) (string, *api.TranscriptionPending, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/sessions/"+id+"/srt", nil)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", nil, err
		}
		return string(body), nil, nil
	case http.StatusAccepted:
		var pending api.TranscriptionPending
		if err := json.NewDecoder(resp.Body).Decode(&pending); err != nil {
			return "", nil, fmt.Errorf("decode srt status: %w", err)
		}
		return "", &pending, nil
	default:
		return "", nil, decodeError(resp)
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable at %s: %w", c.baseURL, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Hint = payload.Hint
	}
	return apiErr
}
