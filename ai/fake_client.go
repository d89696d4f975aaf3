package ai

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// FakeTextClient replays scripted responses in order and records every
// prompt it saw. When Responses run out it keeps returning the last one, or
// Err if set.
type FakeTextClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Prompts   []string

	next int
}

func (f *FakeTextClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, req.Prompt)
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "", errors.New("fake text client has no scripted responses")
	}
	res := f.Responses[f.next]
	if f.next < len(f.Responses)-1 {
		f.next++
	}
	return res, nil
}

// FakeEmbeddingClient returns the scripted vector per input index.
type FakeEmbeddingClient struct {
	Vectors [][]float64
	Err     error
}

func (f *FakeEmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Vectors[:len(texts)], nil
}

// FakeImageClient returns fixed image bytes.
type FakeImageClient struct {
	Image []byte
	Err   error
}

func (f *FakeImageClient) TextToImage(ctx context.Context, prompt string) ([]byte, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Image, nil
}
