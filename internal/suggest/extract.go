package suggest

import "strings"

// Extract returns the span from the first '{' to the last '}' of raw,
// after trimming surrounding whitespace.
//
// This is a bracket-span heuristic, not a balanced parser: two separate
// objects, or prose containing a '}' after the real object, yield a merged
// candidate that Validate then rejects or misparses. If the last '}' comes
// before the first '{' the candidate is empty and fails to parse.
func Extract(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start == -1 || end == -1 {
		return "", errNoObject
	}
	if end < start {
		return "", nil
	}
	return trimmed[start : end+1], nil
}

// ExtractBalanced returns the first complete top-level object in raw,
// tracking brace depth and skipping braces inside string literals.
func ExtractBalanced(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	start := -1
	depth := 0
	inString := false
	escape := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			switch {
			case escape:
				escape = false
			case c == '\\':
				escape = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	if start == -1 {
		return "", errNoObject
	}
	// unterminated object, defer to the bracket span
	return Extract(text)
}
