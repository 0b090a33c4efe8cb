package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/christopherklint97/clarity/internal/engine"
	"github.com/christopherklint97/clarity/internal/suggest"
)

// Level is the colour bucket for a free-form confidence value.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	default:
		return "low"
	}
}

// ConfidenceLevel buckets a confidence string. A word anywhere in the value
// decides first, high before medium, so "very high" and "high (85%)" are
// high. Otherwise the first number counts: above 70 is high, 40 to 70 medium.
// Bare fractions such as "0.85" are read as percentages. Anything else is
// low.
func ConfidenceLevel(confidence string) Level {
	c := strings.ToLower(strings.TrimSpace(confidence))
	switch {
	case strings.Contains(c, "high"):
		return LevelHigh
	case strings.Contains(c, "medium"):
		return LevelMedium
	case strings.Contains(c, "low"):
		return LevelLow
	}

	num, percent := firstNumber(c)
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return LevelLow
	}
	if !percent && v > 0 && v <= 1 {
		v *= 100
	}
	switch {
	case v > 70:
		return LevelHigh
	case v >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// firstNumber returns the first decimal number in s and whether a percent
// sign follows it.
func firstNumber(s string) (string, bool) {
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return "", false
	}
	end := start
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	percent := strings.HasPrefix(strings.TrimSpace(s[end:]), "%")
	return s[start:end], percent
}

// StatusKind selects the symbol and colour of a status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// Status renders a one-line status message.
func Status(kind StatusKind, msg string) string {
	switch kind {
	case StatusSuccess:
		return successStyle.Render("✓ ") + msg
	case StatusWarning:
		return warningStyle.Render("⚠ " + msg)
	case StatusError:
		return errorStyle.Render("✗ ") + msg
	default:
		return infoStyle.Render("ℹ ") + msg
	}
}

const privacyNotice = "All processing happens on this machine. Nothing you type is stored outside the local history."

// Banner is the header printed before a run.
func Banner() string {
	return bannerStyle.Render(
		titleStyle.Render("Clarity") + "\n" +
			subtitleStyle.Render("Private, on-device suggestions"),
	)
}

// RenderResult formats an envelope for the terminal.
func RenderResult(r *engine.Result) string {
	var sb strings.Builder

	if r.Success {
		sb.WriteString(Status(StatusSuccess, fmt.Sprintf("Got %d suggestion(s)", len(r.Suggestions()))))
	} else {
		sb.WriteString(Status(StatusError, "Processing failed: "+r.Error))
	}
	sb.WriteString("\n\n")

	var blocks []string
	for i, s := range r.Suggestions() {
		blocks = append(blocks, renderSuggestion(i+1, s))
	}
	sb.WriteString(boxStyle.Render(strings.Join(blocks, "\n\n")))
	sb.WriteString("\n")

	sb.WriteString(dimStyle.Render("Model: " + r.Model))
	if !r.Timestamp.IsZero() {
		sb.WriteString(dimStyle.Render(" • " + r.Timestamp.Local().Format("2006-01-02 15:04:05")))
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("🔒 " + privacyNotice))
	return sb.String()
}

func renderSuggestion(n int, s suggest.Suggestion) string {
	conf := confidenceStyles[ConfidenceLevel(s.Confidence)].Render(s.Confidence)
	return highlightStyle.Render(fmt.Sprintf("%d. %s", n, s.Text)) + "\n" +
		"   Confidence: " + conf + "\n" +
		dimStyle.Render("   "+s.Reasoning)
}
