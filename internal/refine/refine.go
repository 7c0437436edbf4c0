// Package refine applies a section-scoped rewrite instruction to an already
// generated document.
package refine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"analystpro/internal/apperr"
	"analystpro/internal/llm"
)

// headingPattern matches Markdown headings levels 1-3, keeping the hashes so
// the model can locate the section exactly.
var headingPattern = regexp.MustCompile(`(?m)^#{1,3}\s+.+$`)

// Engine drives section-scoped rewrites through the generation collaborator.
type Engine struct {
	client llm.Client
}

func New(client llm.Client) *Engine { return &Engine{client: client} }

// Sections lists the selectable rewrite targets: every level 1-3 heading
// line, in document order. An empty result means the whole document is the
// implicit target.
func Sections(doc string) []string {
	return headingPattern.FindAllString(doc, -1)
}

// Refine rewrites only the targeted section per the instruction and returns
// the full revised document. The only-the-target contract is an instruction
// to the collaborator; the engine does not diff-verify compliance, so a
// non-compliant rewrite passes through unchanged.
func (e *Engine) Refine(ctx context.Context, doc, targetSection, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", apperr.Validationf("refinement instruction is required")
	}
	if strings.TrimSpace(doc) == "" {
		return "", apperr.Validationf("document is empty")
	}

	scope := strings.TrimSpace(targetSection)
	if scope == "" {
		scope = "the entire document"
	}

	prompt := fmt.Sprintf(`ROLE:
You are revising a business document for a client.

DOCUMENT:
%s

TASK:
Apply this feedback to the section %q ONLY:
%s

RULES:
- Rewrite only the targeted section. Every other character of the document
  must be returned unchanged, including headings, whitespace and tables.
- Return the COMPLETE revised document, not just the section.
- Do not wrap the output in a code fence.`, doc, scope, instruction)

	out, err := e.client.GenerateTextStream(ctx, []llm.Part{llm.TextPart(prompt)}, nil)
	if err != nil {
		return "", apperr.Transient("refinement failed", err)
	}
	revised := StripFence(out)
	if strings.TrimSpace(revised) == "" {
		return "", apperr.Transient("refinement returned an empty document", nil)
	}
	return revised, nil
}

// StripFence removes one enclosing Markdown code fence, if present, before
// the output is treated as document content.
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Opening fence may carry a language tag ("```markdown").
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "```") {
		return trimmed
	}
	last := len(lines) - 1
	if strings.TrimSpace(lines[last]) != "```" {
		return trimmed
	}
	return strings.TrimSpace(strings.Join(lines[1:last], "\n"))
}
