package generation

import "context"

// Request is the normalized input of every generation backend.
type Request struct {
	System string
	Prompt string
}

// Response is the normalized output of every generation backend.
type Response struct {
	Text  string
	Model string
}

// Backend is one answer generator in the priority chain.
// Implementations own their model name and sampling options.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, error)
}
