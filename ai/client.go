package ai

import (
	"context"
)

// GenerateRequest describes one text generation call. WantJSON asks the
// provider to return a machine-parseable JSON body where the provider
// supports enforcing it; callers still validate the payload themselves.
type GenerateRequest struct {
	Prompt      string
	WantJSON    bool
	Temperature float32
}

// TextClient is the single contract every AI-calling component depends on:
// generate(prompt) -> text or structured json. A call may fail; rotation
// across credentials is the caller's concern, see CredentialPool.
type TextClient interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// EmbeddingClient turns texts into vectors for the categorizer.
type EmbeddingClient interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ImageClient renders one illustration for the given prompt and returns the
// encoded image bytes.
type ImageClient interface {
	TextToImage(ctx context.Context, prompt string) ([]byte, error)
}
