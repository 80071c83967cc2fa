// Package provider implements the chat completion provider client.
// It speaks the OpenAI-compatible chat completions wire format, asks for
// structured JSON output, and degrades gracefully when the provider rejects
// the structured-output knob.
package provider

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

	"github.com/coach-hub/science-coach-hub/internal/domain/shared"
	"github.com/coach-hub/science-coach-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// DefaultTimeout bounds one completion round trip.
const DefaultTimeout = 45 * time.Second

// Config contains configuration for the provider client.
type Config struct {
	// Endpoint is the full completions URL.
	Endpoint string

	// APIKey is sent as a Bearer token.
	APIKey string

	// Model is the model identifier to request.
	Model string

	// Timeout is the HTTP request timeout. Zero means DefaultTimeout.
	Timeout time.Duration

	// StructuredOutput asks the provider for json_object responses. When
	// the provider rejects the request, it is retried once without it.
	StructuredOutput bool

	// Logger for structured logging.
	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Message is one prior conversation message sent as model context.
type Message struct {
	Role    string
	Content string
}

// TurnResult is the provider's parsed verdict for one chat turn.
type TurnResult struct {
	// Reply is the coach's reply text for the student.
	Reply string

	// ObjectiveMet is the model's completion claim for the current
	// objective. Advisory only; callers compose it with the heuristic.
	ObjectiveMet bool

	// Tasks is an optional list of follow-up tasks suggested by the model.
	Tasks []string
}

// RequestError is a provider-side failure with the upstream status attached.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("provider request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return shared.ErrProviderRequest
}

// Client is the completion provider client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a provider client.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: config.Logger,
	}
}

// Configured reports whether the client has the settings it needs to make a
// request.
func (c *Client) Configured() bool {
	return c.config.Endpoint != "" && c.config.APIKey != "" && c.config.Model != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION
// ══════════════════════════════════════════════════════════════════════════════

// Complete runs one coaching turn: system prompt, prior history, then the
// student's message. If the provider rejects the structured-output request
// the call is retried exactly once without response_format; when both
// attempts fail, the error reflects the second attempt.
func (c *Client) Complete(ctx context.Context, systemPrompt string, history []Message, userMessage string) (*TurnResult, error) {
	if !c.Configured() {
		return nil, shared.NewDomainError("provider", "complete", shared.ErrConfiguration,
			"provider endpoint, api key and model must be set")
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userMessage})

	req := completionRequest{
		Model:    c.config.Model,
		Messages: messages,
	}
	if c.config.StructuredOutput {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := c.send(ctx, req)
	if err != nil && req.ResponseFormat != nil {
		if _, isRequest := asRequestError(err); isRequest {
			c.logger.Warn("provider rejected structured output, retrying without it",
				logger.Err(err))
			req.ResponseFormat = nil
			body, err = c.send(ctx, req)
		}
	}
	if err != nil {
		return nil, err
	}

	return parseTurn(body)
}

// send performs one HTTP round trip and returns the raw success body.
func (c *Client) send(ctx context.Context, req completionRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, shared.WrapError("provider", "complete", shared.ErrTimeout, "request timed out", err)
		}
		return nil, shared.WrapError("provider", "complete", shared.ErrExternalService, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("provider round trip",
		logger.Int("status", resp.StatusCode),
		logger.Latency(time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
	}

	return body, nil
}

// parseTurn decodes a success body into a TurnResult. The coach persona is
// instructed to answer in strict JSON; content that is not a JSON object
// with a reply string is rejected, with the raw content kept in the error
// for diagnostics.
func parseTurn(body []byte) (*TurnResult, error) {
	var env completionEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, shared.NewDomainError("provider", "complete", shared.ErrInvalidProviderResponse,
			"response is not valid JSON")
	}
	if env.Error != nil && env.Error.Message != "" {
		return nil, shared.NewDomainError("provider", "complete", shared.ErrInvalidProviderResponse, env.Error.Message)
	}

	content, ok := env.content()
	if !ok {
		return nil, shared.NewDomainError("provider", "complete", shared.ErrInvalidProviderResponse,
			"response has no assistant content")
	}

	var payload coachPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &payload); err != nil || payload.Reply == "" {
		return nil, shared.NewDomainError("provider", "complete", shared.ErrInvalidProviderResponse,
			"model output is not the coach JSON object: "+content)
	}

	return &TurnResult{
		Reply:        payload.Reply,
		ObjectiveMet: payload.ObjectiveMet,
		Tasks:        payload.Tasks,
	}, nil
}

// asRequestError unwraps a RequestError from an error chain.
func asRequestError(err error) (*RequestError, bool) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr, true
	}
	return nil, false
}
