// Package suggest extracts the suggestions object from raw model output and
// validates it against the suggestions schema.
//
// Every failure is one of *ExtractionError, *ParseError or *SchemaError and
// can be told apart with errors.As. The package has no state and is safe for
// concurrent use.
package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Mode selects how element-level schema violations are reported.
type Mode string

const (
	// FailFast stops at the first violation.
	FailFast Mode = "fail-fast"
	// CollectAll reports every per-suggestion violation as a joined error.
	// Violations above the suggestion level still stop immediately.
	CollectAll Mode = "collect-all"
)

// Extraction selects how the JSON candidate is located in raw text.
type Extraction string

const (
	BracketSpan Extraction = "bracket-span"
	Balanced    Extraction = "balanced"
)

// Options configure a Validator. The zero value is fail-fast bracket-span.
type Options struct {
	Mode       Mode
	Extraction Extraction
}

// Validator is an immutable extraction and validation policy.
type Validator struct {
	opts Options
}

// New returns a Validator for opts, filling in defaults.
func New(opts Options) (*Validator, error) {
	switch opts.Mode {
	case "":
		opts.Mode = FailFast
	case FailFast, CollectAll:
	default:
		return nil, fmt.Errorf("unknown validation mode %q", opts.Mode)
	}
	switch opts.Extraction {
	case "":
		opts.Extraction = BracketSpan
	case BracketSpan, Balanced:
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", opts.Extraction)
	}
	return &Validator{opts: opts}, nil
}

// Default is the fail-fast bracket-span validator.
var Default = &Validator{opts: Options{Mode: FailFast, Extraction: BracketSpan}}

// Options returns the policy v was built with.
func (v *Validator) Options() Options { return v.opts }

// Extract locates the JSON candidate in raw according to v's strategy.
func (v *Validator) Extract(raw string) (string, error) {
	if v.opts.Extraction == Balanced {
		return ExtractBalanced(raw)
	}
	return Extract(raw)
}

// Parse extracts and validates raw model output.
func (v *Validator) Parse(raw string) (*SuggestionBatch, error) {
	candidate, err := v.Extract(raw)
	if err != nil {
		return nil, err
	}
	return v.Validate(candidate)
}

// Validate parses candidate as JSON and enforces the suggestions schema.
func (v *Validator) Validate(candidate string) (*SuggestionBatch, error) {
	parsed, err := decode(candidate)
	if err != nil {
		return nil, err
	}

	root, ok := parsed.(map[string]any)
	if !ok {
		return nil, topLevelError("top-level value is not an object")
	}
	raw, ok := root["suggestions"]
	if !ok {
		return nil, topLevelError("Missing 'suggestions' field in response")
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, topLevelError("'suggestions' must be an array")
	}
	if len(items) == 0 {
		return nil, topLevelError("'suggestions' array cannot be empty")
	}

	batch := &SuggestionBatch{Suggestions: make([]Suggestion, 0, len(items))}
	var errs []error
	for i, item := range items {
		s, violations := v.validateSuggestion(i, item)
		if len(violations) > 0 {
			if v.opts.Mode != CollectAll {
				return nil, violations[0]
			}
			errs = append(errs, violations...)
			continue
		}
		batch.Suggestions = append(batch.Suggestions, s)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return batch, nil
}

// decode parses exactly one JSON value. Numbers stay json.Number so values
// outside float64 range are still valid JSON.
func decode(candidate string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, newParseError(candidate, err)
	}

	// anything after the first value is reported where it begins
	end := dec.InputOffset()
	var extra any
	err := dec.Decode(&extra)
	if err == io.EOF {
		return parsed, nil
	}
	if err == nil {
		err = errTrailingValue
	}
	rest := candidate[end:]
	start := end + int64(len(rest)-len(strings.TrimLeft(rest, " \t\r\n")))
	pe := &ParseError{Err: err}
	pe.Line, pe.Column = position(candidate, start+1)
	return nil, pe
}

// validateSuggestion checks one element. In fail-fast mode the returned
// slice holds at most one error.
func (v *Validator) validateSuggestion(i int, item any) (Suggestion, []error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Suggestion{}, []error{elementError(i, "", fmt.Sprintf("Suggestion %d must be an object", i))}
	}

	var errs []error
	values := make(map[string]string, len(requiredFields))
	for _, field := range requiredFields {
		val, ok := obj[field]
		if !ok {
			errs = append(errs, elementError(i, field, fmt.Sprintf("Suggestion %d missing required field: %s", i, field)))
		} else if str, isString := val.(string); !isString {
			errs = append(errs, elementError(i, field, fmt.Sprintf("Suggestion %d.%s must be a string", i, field)))
		} else {
			values[field] = str
			continue
		}
		if v.opts.Mode != CollectAll {
			return Suggestion{}, errs
		}
	}
	if len(errs) > 0 {
		return Suggestion{}, errs
	}

	return Suggestion{
		Text:       values["text"],
		Confidence: values["confidence"],
		Reasoning:  values["reasoning"],
	}, nil
}

// Parse extracts and validates raw with the default policy.
func Parse(raw string) (*SuggestionBatch, error) {
	return Default.Parse(raw)
}

// Validate validates candidate JSON text with the default policy.
func Validate(candidate string) (*SuggestionBatch, error) {
	return Default.Validate(candidate)
}
