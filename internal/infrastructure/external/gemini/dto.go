package gemini

import (
	"fmt"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// generateContent WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

type partDTO struct {
	Text string `json:"text"`
}

type contentDTO struct {
	Role  string    `json:"role,omitempty"`
	Parts []partDTO `json:"parts"`
}

type generationConfigDTO struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// GenerateRequest is the body of models/{model}:generateContent.
type GenerateRequest struct {
	SystemInstruction *contentDTO          `json:"systemInstruction,omitempty"`
	Contents          []contentDTO         `json:"contents"`
	GenerationConfig  *generationConfigDTO `json:"generationConfig,omitempty"`
}

// GenerateResponse is the subset of the response the client reads.
type GenerateResponse struct {
	Candidates []struct {
		Content      contentDTO `json:"content"`
		FinishReason string     `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Text joins the parts of the first candidate.
func (r GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

// APIErrorDTO is the error envelope returned on non-2xx responses.
type APIErrorDTO struct {
	Err struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini api status %d (%s): %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini api status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
