package provider

import (
	"encoding/json"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// WIRE DTOs
// The provider API is OpenAI-compatible; two response shapes occur in the
// wild and both are handled here.
// ══════════════════════════════════════════════════════════════════════════════

// chatMessage is one message in the completion request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat requests structured JSON output from the provider.
type responseFormat struct {
	Type string `json:"type"`
}

// completionRequest is the POST body sent to the provider.
type completionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// completionEnvelope covers both known success shapes plus the common error
// shape. Content is kept raw because some providers return an array of
// content parts instead of a plain string.
type completionEnvelope struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`

	Output []struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`

	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// content extracts the assistant text from whichever success shape the
// envelope carries. Returns ok=false when neither shape is present.
func (e *completionEnvelope) content() (string, bool) {
	if len(e.Choices) > 0 {
		raw := e.Choices[0].Message.Content
		if len(raw) == 0 || string(raw) == "null" {
			return "", false
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		// Content-part arrays are re-serialized so downstream parsing sees
		// the same bytes the provider sent.
		return string(raw), true
	}

	if len(e.Output) > 0 && len(e.Output[0].Content) > 0 {
		return e.Output[0].Content[0].Text, true
	}

	return "", false
}

// errorMessage extracts the provider error message from a failure body,
// falling back to the trimmed raw body when the shape is unknown.
func errorMessage(body []byte) string {
	var env completionEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// coachPayload is the strict-JSON document the coach persona is instructed
// to reply with.
type coachPayload struct {
	Reply        string   `json:"reply"`
	ObjectiveMet bool     `json:"objective_met"`
	Tasks        []string `json:"tasks"`
}
