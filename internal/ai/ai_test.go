package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/christopherklint97/clarity/internal/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuilder_ChatEmbedsInput(t *testing.T) {
	b := NewBuilder(DefaultTemplates())
	p := b.Chat("  I keep forgetting names at meetings  ")

	assert.Equal(t, ModeChat, p.Mode)
	assert.True(t, strings.HasPrefix(p.Text, "I keep forgetting names at meetings\n\n"))
	assert.Contains(t, p.Text, "with 1-3 suggestions")
	assert.Contains(t, p.Text, `"confidence": "<low|medium|high|number|percentage>"`)
	assert.True(t, strings.HasSuffix(p.Text, "Only valid JSON."))
}

func TestBuilder_ChatInputWithPercent(t *testing.T) {
	p := NewBuilder(DefaultTemplates()).Chat("I am 90% sure %s %d")
	assert.True(t, strings.HasPrefix(p.Text, "I am 90% sure %s %d\n\n"))
}

func TestBuilder_Transcription(t *testing.T) {
	p := NewBuilder(DefaultTemplates()).Transcription()
	assert.Equal(t, ModeTranscription, p.Mode)
	assert.Contains(t, p.Text, "Transcribe the following audio recording")
	assert.Contains(t, p.Text, "<transcription and actionable suggestion>")
}

// The shape shown to the model must itself pass validation.
func TestTemplates_ShapeContractValidates(t *testing.T) {
	templates := DefaultTemplates()
	for name, text := range map[string]string{"chat": templates.Chat, "transcription": templates.Transcription} {
		t.Run(name, func(t *testing.T) {
			batch, err := suggest.Parse(strings.Replace(text, "%s", "input", 1))
			require.NoError(t, err)
			require.Len(t, batch.Suggestions, 1)
			assert.Equal(t, "<low|medium|high|number|percentage>", batch.Suggestions[0].Confidence)
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	var s map[string]any
	require.NoError(t, json.Unmarshal([]byte(SchemaJSON()), &s))

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []any{"suggestions"}, s["required"])

	props := s["properties"].(map[string]any)
	list := props["suggestions"].(map[string]any)
	assert.Equal(t, "array", list["type"])
	assert.EqualValues(t, 1, list["minItems"])

	item := list["items"].(map[string]any)
	assert.ElementsMatch(t, []any{"text", "confidence", "reasoning"}, item["required"])
	assert.Equal(t, false, item["additionalProperties"])
}

func TestOpenAI_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gemma-3n-e2b-it",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "Sure: {\"suggestions\": []}"}
			}]
		}`)
	}))
	defer srv.Close()

	gen := NewOpenAI(OpenAIConfig{
		BaseURL:          srv.URL + "/v1",
		APIKey:           "secret",
		Model:            "gemma-3n-e2b-it",
		MaxTokens:        2048,
		Temperature:      0.7,
		TopP:             0.9,
		Timeout:          5 * time.Second,
		StructuredOutput: true,
	}, discardLogger())

	out, err := gen.Generate(context.Background(), Prompt{Mode: ModeChat, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `Sure: {"suggestions": []}`, out)
	assert.Equal(t, "gemma-3n-e2b-it", gen.Name())

	assert.Equal(t, "gemma-3n-e2b-it", got["model"])
	assert.EqualValues(t, 2048, got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)
	assert.InDelta(t, 0.9, got["top_p"], 1e-9)
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenAI_GenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"message": "model not loaded", "type": "invalid_request_error"}}`)
	}))
	defer srv.Close()

	gen := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := gen.Generate(context.Background(), Prompt{Text: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requesting chat completion")
}

func TestOpenAI_GenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "x", "object": "chat.completion", "created": 0, "model": "m", "choices": []}`)
	}))
	defer srv.Close()

	gen := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"}, nil)
	_, err := gen.Generate(context.Background(), Prompt{Text: "hello"})
	assert.EqualError(t, err, "no choices in chat completion")
}

func TestUnwrapEnvelope(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{
			name: "structured output preferred",
			out:  `{"type":"result","result":"ignored","structured_output":{"suggestions":[]}}`,
			want: `{"suggestions":[]}`,
		},
		{
			name: "result as string",
			out:  `{"type":"result","result":"Here: {\"suggestions\":[]}"}`,
			want: `Here: {"suggestions":[]}`,
		},
		{
			name: "result as object",
			out:  `{"type":"result","result":{"suggestions":[]}}`,
			want: `{"suggestions":[]}`,
		},
		{
			name: "not an envelope",
			out:  `plain text {"suggestions":[]}`,
			want: `plain text {"suggestions":[]}`,
		},
		{
			name: "envelope without payload",
			out:  `{"type":"result","result":42}`,
			want: `{"type":"result","result":42}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unwrapEnvelope([]byte(tt.out), discardLogger()))
		})
	}
}

func TestCleanEnv(t *testing.T) {
	t.Setenv("CLAUDECODE", "1")
	t.Setenv("CLARITY_TEST_KEEP", "yes")

	env := cleanEnv()
	assert.Contains(t, env, "CLARITY_TEST_KEEP=yes")
	for _, e := range env {
		assert.False(t, strings.HasPrefix(e, "CLAUDECODE="))
	}
}
