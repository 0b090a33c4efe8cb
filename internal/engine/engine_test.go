package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/christopherklint97/clarity/internal/ai"
	"github.com/christopherklint97/clarity/internal/store"
	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []ai.Prompt
}

func (f *fakeGenerator) Name() string { return "gemma-3n-e2b-it" }

func (f *fakeGenerator) Generate(ctx context.Context, p ai.Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	return f.response, f.err
}

type fakeRecorder struct {
	runs []store.Run
}

func (f *fakeRecorder) InsertRun(r *store.Run) (int64, error) {
	f.runs = append(f.runs, *r)
	return int64(len(f.runs)), nil
}

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const validResponse = `Here you go:
{"suggestions": [
  {"text": "Write down three names", "confidence": "high", "reasoning": "Writing aids recall"},
  {"text": "Repeat names aloud", "confidence": "85%", "reasoning": "Rehearsal helps"}
]}`

func TestAssemble_Success(t *testing.T) {
	r := Assemble(suggest.Default, "gemma-3n-e2b-it", validResponse, fixedNow)

	require.True(t, r.Success)
	assert.Equal(t, "gemma-3n-e2b-it", r.Model)
	assert.Equal(t, fixedNow, r.Timestamp)
	assert.Empty(t, r.Error)
	assert.Nil(t, r.FallbackSuggestions)
	require.Len(t, r.Data.Suggestions, 2)
	assert.Equal(t, "85%", r.Data.Suggestions[1].Confidence)
	assert.Equal(t, r.Data.Suggestions, r.Suggestions())
}

func TestAssemble_FailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{name: "extraction", raw: "I cannot help with that.", wantErr: "No JSON object found in response"},
		{name: "parse", raw: `{"suggestions": [,]}`, wantErr: "Invalid JSON response: "},
		{name: "schema", raw: `{"suggestions": []}`, wantErr: "'suggestions' array cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Assemble(suggest.Default, "m", tt.raw, fixedNow)
			assert.False(t, r.Success)
			assert.Contains(t, r.Error, tt.wantErr)
			assert.Nil(t, r.Data)
			assert.True(t, r.Timestamp.IsZero())
			assert.Equal(t, []suggest.Suggestion{Fallback()}, r.FallbackSuggestions)
			assert.Equal(t, r.FallbackSuggestions, r.Suggestions())
		})
	}
}

func TestResult_JSON(t *testing.T) {
	ok := Assemble(suggest.Default, "m", `{"suggestions":[{"text":"t","confidence":"high","reasoning":"r"}]}`, fixedNow)
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": true,
		"data": {"suggestions": [{"text": "t", "confidence": "high", "reasoning": "r"}]},
		"model": "m",
		"timestamp": "2026-10-15T12:00:00Z"
	}`, string(data))

	failed := Failure("m", errors.New("boom"))
	data, err = json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": "boom",
		"fallback_suggestions": [{
			"text": "I'm having trouble processing your request right now. Please try again.",
			"confidence": "low",
			"reasoning": "Technical error occurred during processing"
		}],
		"model": "m"
	}`, string(data))
}

func TestEngine_ProcessText(t *testing.T) {
	gen := &fakeGenerator{response: validResponse}
	rec := &fakeRecorder{}
	e := New(Options{Generator: gen, Recorder: rec, Now: clock})

	r, err := e.ProcessText(context.Background(), "  I forget names  ")
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Len(t, r.Data.Suggestions, 2)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, ai.ModeChat, gen.prompts[0].Mode)
	assert.Contains(t, gen.prompts[0].Text, "I forget names\n\n")

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.Equal(t, "chat", run.Mode)
	assert.Equal(t, "I forget names", run.Input)
	assert.True(t, run.Success)
	assert.Equal(t, validResponse, run.RawResponse)
	assert.Contains(t, run.Suggestions, "Write down three names")
	_, err = uuid.Parse(run.RequestID)
	assert.NoError(t, err)
}

func TestEngine_ProcessTextEmpty(t *testing.T) {
	e := New(Options{Generator: &fakeGenerator{}})
	_, err := e.ProcessText(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEngine_GeneratorErrorBecomesFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("requesting chat completion: connection refused")}
	rec := &fakeRecorder{}
	e := New(Options{Generator: gen, Recorder: rec, Now: clock})

	r, err := e.ProcessText(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "requesting chat completion: connection refused", r.Error)
	assert.Equal(t, "gemma-3n-e2b-it", r.Model)
	assert.Len(t, r.FallbackSuggestions, 1)

	require.Len(t, rec.runs, 1)
	assert.False(t, rec.runs[0].Success)
}

func TestEngine_NoGenerator(t *testing.T) {
	e := New(Options{})
	r, err := e.ProcessText(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "model not loaded", r.Error)
	assert.Equal(t, "unknown", r.Model)
}

func TestEngine_MissingModelFile(t *testing.T) {
	gen := &fakeGenerator{response: validResponse}
	e := New(Options{Generator: gen, ModelPath: filepath.Join(t.TempDir(), "absent.gguf")})

	r, err := e.ProcessText(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "model file not found")
	assert.Empty(t, gen.prompts)
}

func TestEngine_ProcessAudio(t *testing.T) {
	audio := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(audio, []byte("RIFF"), 0644))

	gen := &fakeGenerator{response: `{"suggestions":[{"text":"You said hello","confidence":"0.9","reasoning":"clear audio"}]}`}
	e := New(Options{Generator: gen, Now: clock})

	r, err := e.ProcessAudio(context.Background(), audio)
	require.NoError(t, err)
	require.True(t, r.Success)
	assert.Equal(t, "You said hello", r.Data.Suggestions[0].Text)
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, ai.ModeTranscription, gen.prompts[0].Mode)

	_, err = e.ProcessAudio(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEngine_CollectAllValidator(t *testing.T) {
	v, err := suggest.New(suggest.Options{Mode: suggest.CollectAll})
	require.NoError(t, err)
	gen := &fakeGenerator{response: `{"suggestions":[{"text":1},{"text":"t","confidence":2,"reasoning":"r"}]}`}
	e := New(Options{Generator: gen, Validator: v})

	r, err := e.ProcessText(context.Background(), "hello")
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.Equal(t, "Suggestion 0.text must be a string\n"+
		"Suggestion 0 missing required field: confidence\n"+
		"Suggestion 0 missing required field: reasoning\n"+
		"Suggestion 1.confidence must be a string", r.Error)
}
