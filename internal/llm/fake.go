package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns scripted outputs for offline use and tests.
type FakeClient struct {
	mu sync.Mutex

	TextOut     string
	TextErr     error
	StreamParts []string
	StreamErr   error
	JSONOut     json.RawMessage
	JSONErr     error
	GroundedOut GroundedResult
	GroundedErr error

	TextCalls     int
	StreamCalls   int
	JSONCalls     int
	GroundedCalls int

	LastPrompt string
	LastParts  []Part
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateText(_ context.Context, parts []Part) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TextCalls++
	f.LastParts = parts
	return f.TextOut, f.TextErr
}

func (f *FakeClient) GenerateTextStream(_ context.Context, parts []Part, onChunk StreamFunc) (string, error) {
	f.mu.Lock()
	f.StreamCalls++
	f.LastParts = parts
	chunks := f.StreamParts
	err := f.StreamErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	var full string
	for _, c := range chunks {
		full += c
		if onChunk != nil {
			onChunk(full)
		}
	}
	return full, nil
}

func (f *FakeClient) GenerateJSON(_ context.Context, prompt string, _ any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JSONCalls++
	f.LastPrompt = prompt
	return f.JSONOut, f.JSONErr
}

func (f *FakeClient) GenerateStructured(_ context.Context, parts []Part) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.JSONCalls++
	f.LastParts = parts
	return f.JSONOut, f.JSONErr
}

func (f *FakeClient) GenerateGrounded(_ context.Context, prompt string, _ bool) (GroundedResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GroundedCalls++
	f.LastPrompt = prompt
	return f.GroundedOut, f.GroundedErr
}
