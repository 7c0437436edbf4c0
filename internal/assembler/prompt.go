package assembler

import (
	"fmt"
	"strings"

	"analystpro/internal/types"
)

func generationPrompt(pc ProjectContext, docType types.DocType, answers []types.Answer, grounding string) string {
	var qa strings.Builder
	for i, a := range answers {
		if i > 0 {
			qa.WriteString("\n\n")
		}
		fmt.Fprintf(&qa, "**Q: %s**\n**User Input:** %s", a.QuestionText, a.Text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `ROLE:
You are a world-class Senior Business Analyst and Strategy Consultant with
extensive experience working with Fortune 500 clients. You are tasked with
drafting a high-quality, comprehensive %q for a client project.

PROJECT CONTEXT:
Project Name: %s
Project Description: %s
`, string(docType), pc.Name, pc.Description)

	if grounding != "" {
		fmt.Fprintf(&b, `
EXTERNAL RESEARCH & GROUNDING DATA:
%s
*Instruction*: Use the above external data to validate assumptions, provide
accurate market context, or cite regulations. If the external data is not
relevant to the specific user answers, prioritize the user input.
`, grounding)
	}

	fmt.Fprintf(&b, `
USER INTERVIEW ANSWERS:
%s

CRITICAL INSTRUCTIONS FOR CONTENT GENERATION:
1. Elaborate & Expand: the user inputs are shorthand. Expand them into
   professional, detailed paragraphs.
2. Use Reference Documents: analyze the attached files to extract specific
   terminology, architectural details, existing constraints, and business
   goals, and incorporate them seamlessly. If a user answer contradicts a
   reference document, prioritize the user's latest answer but note the
   deviation if critical.
3. Standard Sections & Best Practices: include standard sections relevant to
   a %q (e.g. Assumptions, Dependencies, Compliance/Regulatory, Glossary)
   even if not explicitly asked. Translate high-level needs into SMART
   criteria.
4. Tone & Formatting: professional, objective, consultative tone. Use
   Markdown headers (#, ##), tables for structured data, and bullet points.
   No conversational filler. Start with the title.

Analyze the attached files, grounding data, and user answers now to generate
the best possible %q.`, qa.String(), string(docType), string(docType))

	return b.String()
}

func autoAnswerPrompt(pc ProjectContext, questions []types.Question) string {
	var list strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&list, "- id %d: %s\n", q.ID, q.Text)
	}

	return fmt.Sprintf(`ROLE:
You are preparing a Business Analyst interview for project %q (%s).

TASK:
Read ONLY the attached reference documents and answer the questions below
using information textually present in them.

QUESTIONS:
%s
RULES:
- An answer must be grounded in the attached files; quote or closely
  paraphrase the source text.
- If the files do not contain the information for a question, OMIT that
  question entirely. Do not guess, infer, or fabricate.
- Keep each answer short and factual.

OUTPUT_FORMAT:
JSON only: {"answers": [{"questionId": <id>, "text": "<answer>"}]}`,
		pc.Name, pc.Description, list.String())
}

func searchPrompt(pc ProjectContext) string {
	return fmt.Sprintf(`Perform high-level business research for this project:
Project Name: %q
Description: %q

Identify:
1. Key market trends or standards relevant to this domain.
2. Common compliance or regulatory requirements (e.g., GDPR, ISO).
3. Potential risks or competitor examples.

Keep the summary concise and professional.`, pc.Name, pc.Description)
}

func mapsPrompt(pc ProjectContext) string {
	return fmt.Sprintf(`Identify the specific physical locations or geographical
context mentioned in: %q - %q

Provide details on the location, nearby relevant infrastructure, or place
attributes.`, pc.Name, pc.Description)
}
