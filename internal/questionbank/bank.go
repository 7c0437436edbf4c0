// Package questionbank supplies the ordered interview question list for a
// document type: curated sets for the known types, a minimal default or an
// AI-generated set for everything else.
package questionbank

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"analystpro/internal/apperr"
	"analystpro/internal/llm"
	"analystpro/internal/types"
)

const defaultPlaceholder = "Enter details here..."

const (
	generatedMin = 7
	generatedMax = 10
)

// FallbackPolicy selects behavior for doc types without a curated set.
type FallbackPolicy int

const (
	// FallbackStatic serves the minimal two-question default.
	FallbackStatic FallbackPolicy = iota
	// FallbackGenerate asks the model for a 7-10 item set; on failure it
	// degrades to the static default rather than blocking the flow.
	FallbackGenerate
)

// Bank resolves question sets. IDs are assigned from position at creation
// time and are not stable across re-generation; answers carry them immutably.
type Bank struct {
	client llm.Client
	policy FallbackPolicy
}

func New(client llm.Client, policy FallbackPolicy) *Bank {
	return &Bank{client: client, policy: policy}
}

// Questions returns the ordered interview set for docType.
func (b *Bank) Questions(ctx context.Context, docType types.DocType) ([]types.Question, error) {
	if raw, ok := staticQuestions[docType]; ok {
		out := make([]types.Question, 0, len(raw))
		for i, q := range raw {
			out = append(out, types.Question{
				ID:          i,
				Text:        q.text,
				Required:    q.required,
				Placeholder: defaultPlaceholder,
			})
		}
		return out, nil
	}

	if b.policy == FallbackGenerate && b.client != nil {
		generated, err := b.generate(ctx, docType)
		if err == nil {
			return generated, nil
		}
		log.Printf("questionbank: generate for %q failed, using default set: %v", docType, err)
	}

	return append([]types.Question(nil), defaultQuestions...), nil
}

type generatedQuestion struct {
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

func (b *Bank) generate(ctx context.Context, docType types.DocType) ([]types.Question, error) {
	prompt := fmt.Sprintf(`[PURPOSE]
Produce the interview questions a Senior Business Analyst would ask a client
before drafting a %q.

[OUTPUT]
- questions ([]object, required): each {"text": string, "required": bool}

[CONSTRAINTS]
- Between %d and %d questions.
- Ordered from general context to specific detail.
- Mark a question required only if the document cannot be drafted without it.

[OUTPUT_FORMAT]
JSON only: {"questions": [...]}`, string(docType), generatedMin, generatedMax)

	raw, err := b.client.GenerateJSON(ctx, prompt, map[string]string{"doc_type": string(docType)})
	if err != nil {
		return nil, apperr.Transient("question generation failed", err)
	}
	var out struct {
		Questions []generatedQuestion `json:"questions"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Transient("question generation returned invalid JSON", err)
	}

	questions := make([]types.Question, 0, len(out.Questions))
	for _, q := range out.Questions {
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		questions = append(questions, types.Question{
			ID:          len(questions),
			Text:        text,
			Required:    q.Required,
			Placeholder: defaultPlaceholder,
		})
		if len(questions) == generatedMax {
			break
		}
	}
	if len(questions) < generatedMin {
		return nil, apperr.Transient(fmt.Sprintf("question generation returned %d items, need at least %d", len(questions), generatedMin), nil)
	}
	return questions, nil
}
