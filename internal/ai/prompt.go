package ai

import (
	"fmt"
	"strings"
)

// Mode identifies which instruction template produced a prompt.
type Mode string

const (
	ModeChat          Mode = "chat"
	ModeTranscription Mode = "transcription"
)

// shapeContract is the response shape both templates ask for. It must stay
// accepted by suggest.Validate.
const shapeContract = `{
  "suggestions": [
    {
      "text": "<%s>",
      "confidence": "<low|medium|high|number|percentage>",
      "reasoning": "<short explanation for this suggestion>"
    }
  ]
}`

const jsonOnly = "Do not include any other text, markdown, or formatting. Only valid JSON."

// Prompt is a rendered instruction ready to send to a Generator.
type Prompt struct {
	Mode Mode
	Text string
}

// Templates holds the two fixed instruction texts. Changing the response
// shape means changing these and the validator together.
type Templates struct {
	Chat          string
	Transcription string
}

// DefaultTemplates returns the built-in chat and transcription templates.
// The chat template takes the user input as its only verb.
func DefaultTemplates() Templates {
	return Templates{
		Chat: "%s\n\n" +
			"Respond ONLY in the following JSON format with 1-3 suggestions:\n" +
			fmt.Sprintf(shapeContract, "actionable suggestion") + "\n\n" +
			jsonOnly,
		Transcription: "Transcribe the following audio recording accurately and provide cognitive support suggestions.\n\n" +
			"Respond ONLY in the following JSON format:\n" +
			fmt.Sprintf(shapeContract, "transcription and actionable suggestion") + "\n\n" +
			jsonOnly,
	}
}

// Builder renders prompts from an immutable set of templates.
type Builder struct {
	templates Templates
}

func NewBuilder(t Templates) *Builder {
	return &Builder{templates: t}
}

// Chat renders the chat template around the user's input.
func (b *Builder) Chat(input string) Prompt {
	return Prompt{
		Mode: ModeChat,
		Text: strings.Replace(b.templates.Chat, "%s", strings.TrimSpace(input), 1),
	}
}

// Transcription renders the transcription template. Audio is not embedded in
// the prompt text.
func (b *Builder) Transcription() Prompt {
	return Prompt{Mode: ModeTranscription, Text: b.templates.Transcription}
}
