package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// cleanEnv returns os.Environ() with Claude Code session vars removed
// so the subprocess doesn't get blocked by the nested-session check.
func cleanEnv() []string {
	blocked := map[string]bool{
		"CLAUDECODE":                           true,
		"CLAUDE_CODE_ENTRYPOINT":               true,
		"CLAUDE_CODE_EXPERIMENTAL_AGENT_TEAMS": true,
	}
	var env []string
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if !blocked[key] {
			env = append(env, e)
		}
	}
	return env
}

// ClaudeCLI generates responses by shelling out to the claude CLI with the
// suggestions schema attached.
type ClaudeCLI struct {
	Model  string
	Binary string
	logger *slog.Logger
}

func NewClaudeCLI(model string, logger *slog.Logger) *ClaudeCLI {
	if model == "" {
		model = "haiku"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClaudeCLI{Model: model, Binary: "claude", logger: logger}
}

func (c *ClaudeCLI) Name() string { return c.Model }

func (c *ClaudeCLI) Generate(ctx context.Context, p Prompt) (string, error) {
	args := []string{
		"-p", p.Text,
		"--output-format", "json",
		"--model", c.Model,
		"--json-schema", SchemaJSON(),
		"--no-session-persistence",
		"--effort", "low",
	}

	c.logger.Debug("invoking claude CLI",
		"model", c.Model,
		"mode", p.Mode,
		"prompt_len", len(p.Text),
		"schema_len", len(SchemaJSON()),
	)

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	cmd.Env = cleanEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	startTime := time.Now()
	err := cmd.Run()
	elapsed := time.Since(startTime)

	c.logger.Debug("claude CLI finished",
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
		"error", err,
	)

	if err != nil {
		c.logger.Error("claude CLI failed",
			"error", err,
			"elapsed", elapsed,
			"stderr", stderr.String(),
		)
		if ctx.Err() != nil {
			return "", fmt.Errorf("claude CLI timed out after %s", elapsed.Truncate(time.Second))
		}
		return "", fmt.Errorf("running claude CLI: %w (stderr: %s)", err, stderr.String())
	}

	c.logger.Debug("claude CLI raw response",
		"stdout", truncateStr(stdout.String(), 2000),
		"stdout_len", stdout.Len(),
	)
	return unwrapEnvelope(stdout.Bytes(), c.logger), nil
}

// unwrapEnvelope strips the claude --output-format json envelope.
// structured_output (typed JSON from --json-schema) wins over result; output
// that is not an envelope is returned as is for the validator to judge.
func unwrapEnvelope(out []byte, logger *slog.Logger) string {
	var wrapper struct {
		Type             string          `json:"type"`
		Subtype          string          `json:"subtype"`
		Result           json.RawMessage `json:"result"`
		StructuredOutput json.RawMessage `json:"structured_output"`
	}
	if err := json.Unmarshal(out, &wrapper); err != nil {
		logger.Debug("wrapper parse failed, treating as raw output", "error", err)
		return string(out)
	}

	logger.Debug("parsed wrapper envelope",
		"type", wrapper.Type,
		"subtype", wrapper.Subtype,
		"has_structured_output", len(wrapper.StructuredOutput) > 0,
	)

	if len(wrapper.StructuredOutput) > 0 && wrapper.StructuredOutput[0] == '{' {
		return string(wrapper.StructuredOutput)
	}

	if len(wrapper.Result) > 0 {
		// result as a JSON string, possibly with prose around the object
		var resultStr string
		if err := json.Unmarshal(wrapper.Result, &resultStr); err == nil && resultStr != "" {
			return resultStr
		}
		if wrapper.Result[0] == '{' || wrapper.Result[0] == '[' {
			return string(wrapper.Result)
		}
		logger.Debug("result field present but could not unwrap",
			"result_preview", truncateStr(string(wrapper.Result), 500),
		)
	}
	return string(out)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
