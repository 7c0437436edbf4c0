package llm

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	genai "google.golang.org/genai"
)

// Model tiers. Reasoning drives full document generation, fast runs the
// grounding tools, lite serves low-latency single-answer suggestions.
const (
	DefaultReasoningModel = "gemini-3-pro-preview"
	DefaultFastModel      = "gemini-2.5-flash"
	DefaultLiteModel      = "gemini-flash-lite-latest"
)

const reasoningThinkingBudget int32 = 32768

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli       *genai.Client
	reasoning string
	fast      string
	lite      string
}

// GeminiOptions overrides the default model per tier; zero values keep the
// defaults.
type GeminiOptions struct {
	ReasoningModel string
	FastModel      string
	LiteModel      string
}

func NewGeminiClient(ctx context.Context, apiKey string, opts GeminiOptions) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	g := &GeminiClient{
		cli:       cli,
		reasoning: firstNonEmpty(opts.ReasoningModel, DefaultReasoningModel),
		fast:      firstNonEmpty(opts.FastModel, DefaultFastModel),
		lite:      firstNonEmpty(opts.LiteModel, DefaultLiteModel),
	}
	return g, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.reasoning }
func (g *GeminiClient) Close() error { return nil }

func (g *GeminiClient) GenerateText(ctx context.Context, parts []Part) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.lite, toContents(parts), nil)
	if err != nil {
		return "", err
	}
	txt, ok := responseText(resp)
	if !ok {
		return "", ErrEmptyResponse
	}
	return txt, nil
}

// GenerateTextStream accumulates streamed chunks and hands the callback the
// full text so far on each delivery.
func (g *GeminiClient) GenerateTextStream(ctx context.Context, parts []Part, onChunk StreamFunc) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(reasoningThinkingBudget),
		},
	}

	var full strings.Builder
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.reasoning, toContents(parts), cfg) {
		if err != nil {
			return "", err
		}
		txt, ok := responseText(resp)
		if !ok || txt == "" {
			continue
		}
		full.WriteString(txt)
		if onChunk != nil {
			onChunk(full.String())
		}
	}
	log.Printf("llm: stream complete (%s): %d bytes", g.reasoning, full.Len())
	return full.String(), nil
}

// GenerateJSON sends the concatenated prompt/input and requests
// application/json, with a bounded backoff retry.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	in, _ := json.MarshalIndent(input, "", "  ")
	full := prompt + "\n\n[INPUT JSON]\n" + string(in)
	log.Printf("llm: json request (%s): %d bytes", g.fast, len(full))

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := g.cli.Models.GenerateContent(ctx, g.fast,
			[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
			&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		)
		if err != nil {
			lastErr = err
		} else if txt, ok := responseText(resp); !ok {
			lastErr = ErrInvalidJSON
		} else {
			return json.RawMessage(txt), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(300*(1<<attempt)) * time.Millisecond):
		}
	}
	return nil, lastErr
}

// GenerateStructured requests application/json output over multi-part input.
func (g *GeminiClient) GenerateStructured(ctx context.Context, parts []Part) (json.RawMessage, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.fast, toContents(parts),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, err
	}
	txt, ok := responseText(resp)
	if !ok {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(txt), nil
}

// GenerateGrounded runs the fast model with the provider's real-time tools
// enabled. Callers treat failures as optional-enrichment misses.
func (g *GeminiClient) GenerateGrounded(ctx context.Context, prompt string, useMaps bool) (GroundedResult, error) {
	tools := []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	if useMaps {
		tools = []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}}
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.fast,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Tools: tools},
	)
	if err != nil {
		return GroundedResult{}, err
	}
	txt, ok := responseText(resp)
	if !ok {
		return GroundedResult{}, ErrEmptyResponse
	}
	return GroundedResult{Text: txt, Sources: groundingSources(resp)}, nil
}

func toContents(parts []Part) []*genai.Content {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if len(p.Data) > 0 {
			out = append(out, &genai.Part{InlineData: &genai.Blob{
				MIMEType: p.MimeType,
				Data:     p.Data,
			}})
			continue
		}
		if p.Text != "" {
			out = append(out, &genai.Part{Text: p.Text})
		}
	}
	return []*genai.Content{{Role: genai.RoleUser, Parts: out}}
}

func responseText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", false
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func groundingSources(resp *genai.GenerateContentResponse) []Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	md := resp.Candidates[0].GroundingMetadata
	if md == nil {
		return nil
	}
	var out []Source
	for _, chunk := range md.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		out = append(out, Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
