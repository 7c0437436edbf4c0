// Package assembler merges project metadata, decoded reference files and
// optional external grounding data into the payload handed to generation.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"analystpro/internal/apperr"
	"analystpro/internal/filecodec"
	"analystpro/internal/llm"
	"analystpro/internal/types"
)

// ProjectContext is the slice of project state generation cares about.
type ProjectContext struct {
	Name        string
	Description string
	Files       []types.ReferenceFile
}

// DefaultContext is used when a flow runs without an active project.
func DefaultContext() ProjectContext {
	return ProjectContext{
		Name:        "Business Analysis Project",
		Description: "General Requirement Analysis",
	}
}

// Keywords that gate the location-specific grounding fetch. A heuristic, not
// a guarantee.
var locationKeywords = []string{
	"location", "address", "site", "city", "region", "venue", "campus",
	"logistics", "delivery", "store", "facility", "warehouse",
}

// Assembler builds generation payloads and runs the extraction flows that
// need file content.
type Assembler struct {
	client    llm.Client
	codec     *filecodec.Codec
	grounding bool
}

// Options tunes the assembler. Grounding defaults to enabled.
type Options struct {
	DisableGrounding bool
}

func New(client llm.Client, codec *filecodec.Codec, opts Options) *Assembler {
	return &Assembler{client: client, codec: codec, grounding: !opts.DisableGrounding}
}

// BuildPayload assembles the ordered prompt parts: decoded file attachments
// first, then the instruction text carrying persona, project context, the
// grounding block and the Q/A transcript. Every attachment round-trips
// through the codec before it is handed out.
func (a *Assembler) BuildPayload(ctx context.Context, pc ProjectContext, docType types.DocType, answers []types.Answer) ([]llm.Part, error) {
	grounding := ""
	if a.grounding {
		grounding = a.fetchExternalContext(ctx, pc)
	}

	parts := make([]llm.Part, 0, len(pc.Files)+1)
	for _, f := range pc.Files {
		raw, err := a.codec.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("assembler: decode %q: %w", f.Name, err)
		}
		parts = append(parts, llm.DataPart(f.MimeType, raw))
	}
	parts = append(parts, llm.TextPart(generationPrompt(pc, docType, answers, grounding)))
	return parts, nil
}

// fetchExternalContext performs best-effort grounding. Failures are logged
// and swallowed: generation proceeds with an empty block when the external
// collaborator is unavailable.
func (a *Assembler) fetchExternalContext(ctx context.Context, pc ProjectContext) string {
	var blocks []string

	if len(strings.TrimSpace(pc.Name)) > 3 {
		res, err := a.client.GenerateGrounded(ctx, searchPrompt(pc), false)
		if err != nil {
			log.Printf("assembler: search grounding skipped: %v", err)
		} else if res.Text != "" {
			blocks = append(blocks, "### EXTERNAL RESEARCH:\n"+res.Text)
			if links := formatSources(res.Sources); links != "" {
				blocks = append(blocks, "**Sources:** "+links)
			}
		}
	}

	if hasLocationHint(pc) {
		res, err := a.client.GenerateGrounded(ctx, mapsPrompt(pc), true)
		if err != nil {
			log.Printf("assembler: maps grounding skipped: %v", err)
		} else if res.Text != "" {
			blocks = append(blocks, "### LOCATION DATA:\n"+res.Text)
			if links := formatSources(res.Sources); links != "" {
				blocks = append(blocks, "**Map Links:** "+links)
			}
		}
	}

	return strings.Join(blocks, "\n\n")
}

func hasLocationHint(pc ProjectContext) bool {
	combined := strings.ToLower(pc.Name + " " + pc.Description)
	for _, k := range locationKeywords {
		if strings.Contains(combined, k) {
			return true
		}
	}
	return false
}

func formatSources(sources []llm.Source) string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		if s.URI == "" {
			continue
		}
		title := s.Title
		if title == "" {
			title = s.URI
		}
		out = append(out, fmt.Sprintf("[%s](%s)", title, s.URI))
	}
	return strings.Join(out, ", ")
}

// AutoAnswer asks the model to extract answers verbatim from the attached
// reference files. The contract is strict: an answer is returned only when
// it is textually found in the files; unmatched questions are omitted, never
// filled with placeholders.
func (a *Assembler) AutoAnswer(ctx context.Context, questions []types.Question, pc ProjectContext) ([]types.Answer, error) {
	if len(questions) == 0 || len(pc.Files) == 0 {
		return nil, nil
	}

	parts := make([]llm.Part, 0, len(pc.Files)+1)
	for _, f := range pc.Files {
		raw, err := a.codec.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("assembler: decode %q: %w", f.Name, err)
		}
		parts = append(parts, llm.DataPart(f.MimeType, raw))
	}
	parts = append(parts, llm.TextPart(autoAnswerPrompt(pc, questions)))

	raw, err := a.client.GenerateStructured(ctx, parts)
	if err != nil {
		return nil, apperr.Transient("auto-answer extraction failed", err)
	}
	var out struct {
		Answers []struct {
			QuestionID int    `json:"questionId"`
			Text       string `json:"text"`
		} `json:"answers"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Transient("auto-answer returned invalid JSON", err)
	}

	byID := make(map[int]types.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	answers := make([]types.Answer, 0, len(out.Answers))
	for _, ans := range out.Answers {
		q, ok := byID[ans.QuestionID]
		text := strings.TrimSpace(ans.Text)
		if !ok || text == "" {
			continue
		}
		answers = append(answers, types.Answer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Text:         text,
		})
	}
	return answers, nil
}

const suggestFallback = "To be determined based on stakeholder feedback."

// SuggestAnswer produces a one-shot suggested answer for a single question.
// Failures degrade to a fixed sentinel rather than an error: the suggestion
// is a convenience, not part of the generation contract.
func (a *Assembler) SuggestAnswer(ctx context.Context, question string, pc ProjectContext) string {
	prompt := fmt.Sprintf(`Context: Project %q - %s.
Question: %q

Provide a professional, realistic, and specific answer to this question that
a Business Analyst would write for this project. Keep it concise (1-2
sentences).`, pc.Name, pc.Description, question)

	text, err := a.client.GenerateText(ctx, []llm.Part{llm.TextPart(prompt)})
	if err != nil || strings.TrimSpace(text) == "" {
		return suggestFallback
	}
	return strings.TrimSpace(text)
}
