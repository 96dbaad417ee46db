// Package backend is the HTTP client for the tonal classification service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/prediction"
)

// ErrNotConfigured is returned by New when no base URL is given.
var ErrNotConfigured = errors.New("backend api url not configured")

// maxErrorBody bounds how much of an error response is read for the detail message.
const maxErrorBody = 64 << 10

// Error describes a failed backend call. StatusCode is zero for transport failures.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ServerDetail returns the server-supplied detail message, if any.
func (e *Error) ServerDetail() string { return e.Detail }

// Transport reports whether the call never produced an HTTP response.
func (e *Error) Transport() bool { return e.StatusCode == 0 }

// Client talks to the classification backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
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

// WithToken sends a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a backend client.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (prediction.Health, error) {
	var out prediction.Health
	err := c.getJSON(ctx, "health", "/health", &out)

	return out, err
}

// ModelInfo calls GET /model-info.
func (c *Client) ModelInfo(ctx context.Context) (prediction.ModelInfo, error) {
	var out prediction.ModelInfo
	err := c.getJSON(ctx, "model info", "/model-info", &out)

	return out, err
}

// Notes calls GET /notes.
func (c *Client) Notes(ctx context.Context) (prediction.NotesCatalog, error) {
	var out prediction.NotesCatalog
	err := c.getJSON(ctx, "notes", "/notes", &out)

	return out, err
}

// CulturalInfo calls GET /cultural-info/{note}.
func (c *Client) CulturalInfo(ctx context.Context, note prediction.Category) (prediction.CulturalInfo, error) {
	var out prediction.CulturalInfo
	err := c.getJSON(ctx, "cultural info", "/cultural-info/"+url.PathEscape(string(note)), &out)

	return out, err
}

// Predict uploads the clip as multipart field "file" to POST /predict and
// validates the response into a Result.
func (c *Client) Predict(ctx context.Context, file clip.File) (prediction.Result, error) {
	const op = "predict"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", file.Name())
	if err != nil {
		return prediction.Result{}, &Error{Op: op, Err: fmt.Errorf("build multipart body: %w", err)}
	}
	if _, err := io.Copy(part, file.Reader()); err != nil {
		return prediction.Result{}, &Error{Op: op, Err: fmt.Errorf("write multipart body: %w", err)}
	}
	if err := mw.Close(); err != nil {
		return prediction.Result{}, &Error{Op: op, Err: fmt.Errorf("close multipart body: %w", err)}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/predict", &body)
	if err != nil {
		return prediction.Result{}, &Error{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var wire prediction.WirePrediction
	if err := c.do(req, op, &wire); err != nil {
		return prediction.Result{}, err
	}

	result, err := prediction.Parse(wire)
	if err != nil {
		return prediction.Result{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return &Error{Op: op, Err: err}
	}

	return c.do(req, op, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		c.logger.Debug("backend request failed", "op", op, "latency", latency, "error", err)
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request", "op", op, "status", resp.StatusCode, "latency", latency)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{Op: op, StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// parseDetail extracts the "detail" field of an error body. FastAPI sends
// either a string or a list of validation errors carrying "msg".
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			if item.Msg != "" {
				msgs = append(msgs, item.Msg)
			}
		}

		return strings.Join(msgs, "; ")
	}

	return ""
}
