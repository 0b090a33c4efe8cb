package ai

import "context"

// Generator is the model invocation collaborator: one prompt in, one raw
// text response out. The response shape is not guaranteed.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
	// Name is the model name reported alongside results.
	Name() string
}
