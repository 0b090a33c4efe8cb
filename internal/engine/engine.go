// Package engine turns user input into a renderable Result: it builds the
// prompt, calls the generator, validates the response and converts any
// failure into a fallback envelope.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/christopherklint97/clarity/internal/ai"
	"github.com/christopherklint97/clarity/internal/model"
	"github.com/christopherklint97/clarity/internal/notify"
	"github.com/christopherklint97/clarity/internal/store"
	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/google/uuid"
)

// ErrEmptyInput is returned for blank chat input.
var ErrEmptyInput = errors.New("no input provided")

// Recorder keeps a history of processed runs.
type Recorder interface {
	InsertRun(r *store.Run) (int64, error)
}

type Options struct {
	Generator ai.Generator
	Prompts   *ai.Builder
	Validator *suggest.Validator
	// ModelPath, when set, must exist before the generator is called.
	ModelPath string
	Recorder  Recorder
	Notifier  *notify.Notifier
	Logger    *slog.Logger
	Now       func() time.Time
}

type Engine struct {
	gen       ai.Generator
	prompts   *ai.Builder
	validator *suggest.Validator
	modelPath string
	recorder  Recorder
	notifier  *notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

func New(opts Options) *Engine {
	e := &Engine{
		gen:       opts.Generator,
		prompts:   opts.Prompts,
		validator: opts.Validator,
		modelPath: opts.ModelPath,
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.prompts == nil {
		e.prompts = ai.NewBuilder(ai.DefaultTemplates())
	}
	if e.validator == nil {
		e.validator = suggest.Default
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// ModelName is the name reported in every envelope.
func (e *Engine) ModelName() string {
	if e.gen == nil {
		return "unknown"
	}
	return e.gen.Name()
}

// ProcessText runs chat mode for text.
func (e *Engine) ProcessText(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	return e.process(ctx, e.prompts.Chat(text), text), nil
}

// ProcessAudio runs transcription mode for the recording at path. The
// recording must exist; it is not decoded.
func (e *Engine) ProcessAudio(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading audio file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("audio path is a directory: %s", path)
	}
	e.logger.Debug("processing audio", "path", path, "size", info.Size())
	return e.process(ctx, e.prompts.Transcription(), path), nil
}

func (e *Engine) process(ctx context.Context, prompt ai.Prompt, input string) *Result {
	requestID := uuid.NewString()
	logger := e.logger.With("request_id", requestID)

	startTime := e.now()
	raw, err := e.generate(ctx, prompt)

	var result *Result
	if err != nil {
		logger.Error("generation failed", "mode", prompt.Mode, "error", err)
		result = Failure(e.ModelName(), err)
	} else {
		result = Assemble(e.validator, e.ModelName(), raw, e.now())
		if !result.Success {
			logger.Debug("response rejected",
				"mode", prompt.Mode,
				"error", result.Error,
				"raw", truncate(raw, 2000),
			)
		}
	}
	elapsed := e.now().Sub(startTime)

	logger.Debug("processed request",
		"mode", prompt.Mode,
		"success", result.Success,
		"suggestions", len(result.Suggestions()),
		"elapsed", elapsed,
	)

	e.record(requestID, prompt.Mode, input, raw, result, elapsed)
	if _, err := e.notifier.RunFinished(result.Success, len(result.Suggestions()), elapsed); err != nil {
		logger.Debug("notification failed", "error", err)
	}
	return result
}

func (e *Engine) generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	if e.gen == nil {
		return "", errors.New("model not loaded")
	}
	if e.modelPath != "" {
		if err := model.CheckExists(e.modelPath); err != nil {
			return "", err
		}
	}
	return e.gen.Generate(ctx, prompt)
}

func (e *Engine) record(requestID string, mode ai.Mode, input, raw string, result *Result, elapsed time.Duration) {
	if e.recorder == nil {
		return
	}
	suggestions, err := json.Marshal(result.Suggestions())
	if err != nil {
		e.logger.Debug("marshaling suggestions for history failed", "error", err)
		return
	}
	run := &store.Run{
		RequestID:   requestID,
		Mode:        string(mode),
		Input:       input,
		Model:       result.Model,
		Success:     result.Success,
		Error:       result.Error,
		Suggestions: string(suggestions),
		RawResponse: raw,
		Elapsed:     elapsed,
		CreatedAt:   e.now(),
	}
	if _, err := e.recorder.InsertRun(run); err != nil {
		e.logger.Error("recording run failed", "error", err)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
