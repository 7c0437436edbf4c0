// Package llm wraps the generative collaborator behind a small interface so
// the orchestrator, assembler and refinement engine stay vendor-agnostic.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrInvalidJSON is returned when the model reply cannot be used as JSON.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// ErrEmptyResponse is returned when the model reply has no candidates.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// Part is one piece of a multi-part prompt: either text or an inline binary
// attachment with its declared mime type.
type Part struct {
	Text     string
	MimeType string
	Data     []byte
}

// TextPart builds a text part.
func TextPart(text string) Part { return Part{Text: text} }

// DataPart builds an inline binary attachment part.
func DataPart(mimeType string, data []byte) Part { return Part{MimeType: mimeType, Data: data} }

// StreamFunc receives the full accumulated text on every chunk: latest value
// wins. Consumers replace displayed content with each invocation rather than
// appending, which tolerates coalesced delivery by the transport.
type StreamFunc func(accumulated string)

// Client is the generation collaborator contract. Failures are returned as
// errors; no retry happens above this layer.
type Client interface {
	Name() string
	// GenerateText runs a single-shot completion over the prompt parts.
	GenerateText(ctx context.Context, parts []Part) (string, error)
	// GenerateTextStream streams a completion, invoking onChunk with the
	// accumulated text so far, and returns the final full text.
	GenerateTextStream(ctx context.Context, parts []Part, onChunk StreamFunc) (string, error)
	// GenerateJSON requests structured application/json output and decodes
	// nothing: callers unmarshal into their own shapes.
	GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error)
	// GenerateStructured is GenerateJSON over multi-part prompts, used when
	// binary attachments must accompany the instruction.
	GenerateStructured(ctx context.Context, parts []Part) (json.RawMessage, error)
	// GenerateGrounded runs a completion with real-time grounding tools
	// (search, and optionally maps) enabled, returning the text plus any
	// source links the provider reported.
	GenerateGrounded(ctx context.Context, prompt string, useMaps bool) (GroundedResult, error)
	Close() error
}

// GroundedResult is a grounded completion with its cited sources.
type GroundedResult struct {
	Text    string
	Sources []Source
}

// Source is one grounding citation.
type Source struct {
	Title string
	URI   string
}
