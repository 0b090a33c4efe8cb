package engine

import (
	"time"

	"github.com/christopherklint97/clarity/internal/suggest"
)

// Result is the envelope handed to the renderer or serialized with --json.
// Exactly one of Data or Error/FallbackSuggestions is set.
type Result struct {
	Success             bool                     `json:"success"`
	Data                *suggest.SuggestionBatch `json:"data,omitempty"`
	Error               string                   `json:"error,omitempty"`
	FallbackSuggestions []suggest.Suggestion     `json:"fallback_suggestions,omitempty"`
	Model               string                   `json:"model"`
	Timestamp           time.Time                `json:"timestamp,omitzero"`
}

// Fallback is the suggestion shown whenever processing fails.
func Fallback() suggest.Suggestion {
	return suggest.Suggestion{
		Text:       "I'm having trouble processing your request right now. Please try again.",
		Confidence: "low",
		Reasoning:  "Technical error occurred during processing",
	}
}

// Suggestions returns what should be displayed: the validated batch on
// success, the fallback list otherwise.
func (r *Result) Suggestions() []suggest.Suggestion {
	if r.Success && r.Data != nil {
		return r.Data.Suggestions
	}
	return r.FallbackSuggestions
}

// Assemble validates raw model output and wraps the outcome in an envelope.
// Validation errors become a failure envelope carrying the message verbatim.
func Assemble(v *suggest.Validator, model, raw string, now time.Time) *Result {
	batch, err := v.Parse(raw)
	if err != nil {
		return Failure(model, err)
	}
	return &Result{
		Success:   true,
		Data:      batch,
		Model:     model,
		Timestamp: now,
	}
}

// Failure builds the failure envelope for err.
func Failure(model string, err error) *Result {
	return &Result{
		Success:             false,
		Error:               err.Error(),
		FallbackSuggestions: []suggest.Suggestion{Fallback()},
		Model:               model,
	}
}
