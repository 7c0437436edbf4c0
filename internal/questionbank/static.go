package questionbank

import "analystpro/internal/types"

type rawQuestion struct {
	text     string
	required bool
}

// Hand-curated interview sets per document type, in fixed order. Sourced from
// expert BA input; required flags gate interview completion.
var staticQuestions = map[types.DocType][]rawQuestion{
	types.DocTypeBRD: {
		{"What is the project title and background?", true},
		{"What is the project's business objective or need?", true},
		{"Who are the key stakeholders?", true},
		{"What is the project scope?", true},
		{"What are the project boundaries or exclusions?", true},
		{"What are the high-level business requirements?", true},
		{"What are the expected benefits and success criteria?", true},
		{"What is the estimated budget/resource allocation?", false},
		{"What is the timeline and major milestones?", true},
		{"What are the identified risks and mitigation plans?", false},
		{"Are there any assumptions or dependencies?", false},
		{"Who will provide project governance/oversight?", false},
	},
	types.DocTypeSRS: {
		{"What is the system overview and purpose?", true},
		{"What are the major functions/features required?", true},
		{"What are the workflow or business process requirements?", true},
		{"What are the data input, processing, and output specifications?", true},
		{"Are there specific interface requirements with other systems?", false},
		{"What non-functional requirements apply (e.g., performance, availability)?", true},
		{"Are there any regulatory or security requirements?", true},
		{"What are the expected user roles and their access levels?", true},
		{"What are the test/acceptance criteria for each function?", true},
	},
	types.DocTypeUserStories: {
		{"Who is the user or persona?", true},
		{"What action or feature do they need?", true},
		{"Why is this feature important to the user?", true},
		{"What are the preconditions for the user story?", false},
		{"What are the specific acceptance criteria (Given/When/Then)?", true},
		{"Are there any edge cases or exceptions?", false},
		{"How will you measure if the story is done?", true},
	},
	types.DocTypeRFP: {
		{"What is the background and goal of the project?", true},
		{"What specific products/services are requested?", true},
		{"What are the mandatory requirements vendors must fulfill?", true},
		{"What is the anticipated budget range?", false},
		{"What is the desired project timeline?", true},
		{"What are the proposal submission guidelines?", true},
		{"What are the selection and evaluation criteria?", true},
		{"What references or proof of capability are requested?", false},
		{"Are there specific questions vendors must answer?", true},
	},
	types.DocTypeRACI: {
		{"What are the project tasks or deliverables?", true},
		{"Who are the key roles (Responsible, Accountable, Consulted, Informed)?", true},
		{"What is the assignment of roles to each task?", true},
		{"Are any task dependencies or sequencing needed?", false},
		{"How often will the matrix be reviewed or updated?", false},
	},
	types.DocTypeImpactAnalysis: {
		{"What is the potential change/event being analyzed?", true},
		{"Which business processes or systems are affected?", true},
		{"What are the possible consequences for each area?", true},
		{"What is the estimated duration and severity of impact?", true},
		{"Who are the key stakeholders impacted?", true},
		{"What mitigating actions or contingency plans exist?", true},
		{"What resources are needed for recovery?", false},
		{"Are there historical incidents of similar impact?", false},
	},
}

var defaultQuestions = []types.Question{
	{ID: 0, Text: "What is the main objective of this document?", Placeholder: "Describe the goal...", Required: true},
	{ID: 1, Text: "Who are the key stakeholders?", Placeholder: "List stakeholders...", Required: true},
}
