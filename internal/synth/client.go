package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Engine request defaults.
const (
	// DefaultTimeout bounds a normal synthesis round trip.
	DefaultTimeout = 60 * time.Second
	// NotificationTimeout bounds synthesis when the caller cannot wait.
	NotificationTimeout = 5 * time.Second
	// MinAudioSize is the smallest response body accepted as real audio.
	// Engines return tiny bodies (error JSON, silence headers) on failure.
	MinAudioSize = 1000

	modelName     = "kokoro"
	speechPath    = "/v1/audio/speech"
	voicesPath    = "/v1/audio/voices"
	healthPath    = "/health"
	requestBurst  = 4
	requestPerSec = 8
)

// Error represents a synthesis engine failure. Type is one of
// "connection", "request", "response", or "timeout".
type Error struct {
	Type    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("synth %s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("synth %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsUnavailable reports whether err means the engine cannot serve audio
// right now, as opposed to a bad request on our side.
func IsUnavailable(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Type == "connection" || se.Type == "timeout" || se.Type == "response"
}

// Request describes one synthesis call.
type Request struct {
	// Text to synthesize, already normalized by the caller.
	Text string
	// Voice is the engine voice spec, either a single ID or a blend
	// expression such as "af_bella(2)+af_sky(1)".
	Voice string
	// Speed multiplier in the engine's accepted range.
	Speed float64
	// Format is the audio container to request (wav, mp3, pcm, ...).
	Format string
}

type speechPayload struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

// Client talks to a local OpenAI-compatible speech engine.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for the engine at baseURL. The URL is
// validated eagerly so misconfiguration surfaces before the first call.
func NewClient(baseURL string) (*Client, error) {
	trimmed := strings.TrimRight(baseURL, "/")
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{
			Type:    "request",
			Message: fmt.Sprintf("invalid server URL %q", baseURL),
			Cause:   err,
		}
	}

	return &Client{
		baseURL: trimmed,
		http: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestPerSec), requestBurst),
	}, nil
}

// BaseURL returns the engine URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Synthesize sends text to the engine and returns the audio bytes.
// Deadlines come from ctx; callers pick DefaultTimeout or
// NotificationTimeout depending on how long they can block.
func (c *Client) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	if req.Text == "" {
		return nil, &Error{Type: "request", Message: "empty text"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Type: "timeout", Message: "rate limit wait canceled", Cause: err}
	}

	payload := speechPayload{
		Model:          modelName,
		Input:          req.Text,
		Voice:          req.Voice,
		Speed:          req.Speed,
		ResponseFormat: req.Format,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Type: "request", Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechPath, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Type: "request", Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer not-needed")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &Error{Type: "timeout", Message: "synthesis timed out", Cause: err}
		}
		return nil, &Error{
			Type:    "connection",
			Message: fmt.Sprintf("engine unreachable at %s", c.baseURL),
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Type:    "response",
			Message: fmt.Sprintf("engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Type: "response", Message: "reading audio body", Cause: err}
	}

	// Some engines answer 200 with a stub body when the voice is bad.
	if len(audio) < MinAudioSize {
		return nil, &Error{
			Type:    "response",
			Message: fmt.Sprintf("response too small to be audio (%d bytes)", len(audio)),
		}
	}

	return audio, nil
}

// Health reports whether the engine answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return &Error{Type: "request", Message: "building health request", Cause: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{
			Type:    "connection",
			Message: fmt.Sprintf("engine unreachable at %s", c.baseURL),
			Cause:   err,
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Type:    "response",
			Message: fmt.Sprintf("health check returned %d", resp.StatusCode),
		}
	}
	return nil
}

// Voices fetches the voice IDs the engine advertises. The list is
// sorted by the engine; we pass it through untouched.
func (c *Client) Voices(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+voicesPath, nil)
	if err != nil {
		return nil, &Error{Type: "request", Message: "building voices request", Cause: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Type:    "connection",
			Message: fmt.Sprintf("engine unreachable at %s", c.baseURL),
			Cause:   err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			Type:    "response",
			Message: fmt.Sprintf("voices endpoint returned %d", resp.StatusCode),
		}
	}

	var parsed struct {
		Voices []string `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &Error{Type: "response", Message: "decoding voice list", Cause: err}
	}

	return parsed.Voices, nil
}
