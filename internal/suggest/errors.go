package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ExtractionError means no JSON-looking span was found in the raw text.
type ExtractionError struct {
	Msg string
}

func (e *ExtractionError) Error() string { return e.Msg }

// ParseError means the candidate span is not syntactically valid JSON.
type ParseError struct {
	Line   int // 1-based, 0 when unknown
	Column int // 1-based, 0 when unknown
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("Invalid JSON response: %v (line %d, column %d)", e.Err, e.Line, e.Column)
	}
	return fmt.Sprintf("Invalid JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the JSON is valid but violates the suggestions schema.
// Index is -1 for violations above the suggestion level.
type SchemaError struct {
	Index int
	Field string
	Msg   string
}

func (e *SchemaError) Error() string { return e.Msg }

var (
	errNoObject      = &ExtractionError{Msg: "No JSON object found in response"}
	errTrailingValue = errors.New("invalid character after top-level value")
)

func newParseError(candidate string, err error) *ParseError {
	pe := &ParseError{Err: err}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && len(candidate) > 0 {
		pe.Line, pe.Column = position(candidate, syntaxErr.Offset)
	}
	return pe
}

// position converts a decoder offset (bytes read before the error) into the
// 1-based line and column of the offending byte.
func position(s string, offset int64) (int, int) {
	if offset > int64(len(s)) {
		offset = int64(len(s))
	}
	if offset < 1 {
		return 1, 1
	}
	prefix := s[:offset-1]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndexByte(prefix, '\n')
	return line, col
}

func topLevelError(msg string) *SchemaError {
	return &SchemaError{Index: -1, Msg: msg}
}

func elementError(index int, field, msg string) *SchemaError {
	return &SchemaError{Index: index, Field: field, Msg: msg}
}
