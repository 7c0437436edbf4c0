// Package orchestrator drives the document-creation flow: template selection,
// interview, streamed generation, preview, refinement write-back and save.
// One Flow holds the state of one user session; collaborators are injected
// once and shared.
package orchestrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"analystpro/internal/answercache"
	"analystpro/internal/apperr"
	"analystpro/internal/assembler"
	"analystpro/internal/llm"
	"analystpro/internal/questionbank"
	"analystpro/internal/store"
	"analystpro/internal/types"
)

// View is the current step of the flow. Transitions are driven exclusively by
// the operations below.
type View string

const (
	ViewProjectsList        View = "PROJECTS_LIST"
	ViewProjectDetails      View = "PROJECT_DETAILS"
	ViewTemplateSelect      View = "TEMPLATE_SELECT"
	ViewGeneratingQuestions View = "GENERATING_QUESTIONS"
	ViewInterview           View = "INTERVIEW"
	ViewGeneratingDoc       View = "GENERATING_DOC"
	ViewPreview             View = "PREVIEW"
)

// Sentinel applied to optional questions left blank at submission, so stored
// answer sets are always complete and comparable.
const noAnswer = "No answer provided."

// Orchestrator wires the collaborators every flow shares.
type Orchestrator struct {
	bank   *questionbank.Bank
	asm    *assembler.Assembler
	client llm.Client
	store  *store.Store
}

func New(bank *questionbank.Bank, asm *assembler.Assembler, client llm.Client, st *store.Store) *Orchestrator {
	return &Orchestrator{bank: bank, asm: asm, client: client, store: st}
}

// Flow is one user session's state machine. All mutation goes through its
// methods; the mutex is held only across state changes, never across model or
// store calls.
type Flow struct {
	o *Orchestrator

	mu        sync.Mutex
	ownerID   string
	view      View
	project   *types.Project
	template  types.Template
	questions []types.Question
	drafts    map[int]string
	doc       *types.GeneratedDocument
	editingID string
	cache     *answercache.Cache

	// genToken tags each generation; results carrying a stale token are
	// discarded instead of populating a session the user navigated away from.
	genToken uint64

	generating bool
	saving     bool
}

func (o *Orchestrator) NewFlow(ownerID string) *Flow {
	return &Flow{
		o:       o,
		ownerID: strings.TrimSpace(ownerID),
		view:    ViewProjectsList,
		drafts:  make(map[int]string),
		cache:   answercache.New(),
	}
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *Flow) IsGenerating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generating
}

func (f *Flow) IsSaving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saving
}

// Project returns the active project, if any.
func (f *Flow) Project() (types.Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.project == nil {
		return types.Project{}, false
	}
	return *f.project, true
}

// Questions returns the current interview set.
func (f *Flow) Questions() []types.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Question(nil), f.questions...)
}

// Document returns the previewed document, if one exists.
func (f *Flow) Document() (types.GeneratedDocument, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return types.GeneratedDocument{}, false
	}
	return *f.doc, true
}

// OpenProjects returns to the project list. Any in-flight generation result
// is abandoned.
func (f *Flow) OpenProjects() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genToken++
	f.generating = false
	f.project = nil
	f.view = ViewProjectsList
}

// OpenProject loads a project and enters its detail view.
func (f *Flow) OpenProject(projectID string) error {
	f.mu.Lock()
	owner := f.ownerID
	f.mu.Unlock()

	p, err := f.o.store.GetProject(owner, projectID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.project = &p
	f.view = ViewProjectDetails
	f.mu.Unlock()
	return nil
}

// StartDocument clears the session and enters template selection. The
// remembered answer set is dropped: a new document never inherits the
// idempotence state of the previous one.
func (f *Flow) StartDocument() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetSessionLocked()
	f.view = ViewTemplateSelect
}

func (f *Flow) resetSessionLocked() {
	f.genToken++
	f.template = types.Template{}
	f.questions = nil
	f.drafts = make(map[int]string)
	f.doc = nil
	f.editingID = ""
	f.cache.Reset()
	f.generating = false
}

// SelectTemplate loads the question set for the chosen template and, when the
// project carries reference files, pre-fills answers the assembler can
// extract from them. A question-load failure returns the flow to template
// selection.
func (f *Flow) SelectTemplate(ctx context.Context, tmpl types.Template) error {
	f.mu.Lock()
	if f.view != ViewTemplateSelect {
		f.mu.Unlock()
		return apperr.Validationf("template selection is not open")
	}
	f.template = tmpl
	f.view = ViewGeneratingQuestions
	pc := f.projectContextLocked()
	f.mu.Unlock()

	questions, err := f.o.bank.Questions(ctx, tmpl.Type)
	if err != nil {
		f.mu.Lock()
		f.view = ViewTemplateSelect
		f.mu.Unlock()
		return apperr.Transient("could not prepare interview questions", err)
	}

	drafts := make(map[int]string, len(questions))
	if len(pc.Files) > 0 {
		extracted, err := f.o.asm.AutoAnswer(ctx, questions, pc)
		if err != nil {
			// Pre-fill is a convenience; the interview starts blank instead.
			log.Printf("orchestrator: auto-answer skipped: %v", err)
		}
		for _, a := range extracted {
			drafts[a.QuestionID] = a.Text
		}
	}

	f.mu.Lock()
	f.questions = questions
	f.drafts = drafts
	f.view = ViewInterview
	f.mu.Unlock()
	return nil
}

// SetAnswer records a draft answer for one question.
func (f *Flow) SetAnswer(questionID int, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[questionID] = text
}

// Answers returns the current draft answers keyed by question ID.
func (f *Flow) Answers() map[int]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]string, len(f.drafts))
	for k, v := range f.drafts {
		out[k] = v
	}
	return out
}

// CompleteInterview validates the draft answers and generates the document.
// Required questions must be answered; optional blanks are filled with a
// fixed sentinel at submission. If a document already exists for this session
// and the submitted set is value-equal to the one that produced it, the flow
// jumps straight to preview without a model call. onChunk, when non-nil,
// receives the full accumulated text after every streamed chunk.
func (f *Flow) CompleteInterview(ctx context.Context, onChunk llm.StreamFunc) error {
	f.mu.Lock()
	if f.view != ViewInterview {
		f.mu.Unlock()
		return apperr.Validationf("interview is not open")
	}
	if f.generating {
		f.mu.Unlock()
		return apperr.Validationf("a generation is already in progress")
	}

	submitted := make([]types.Answer, 0, len(f.questions))
	for _, q := range f.questions {
		text := strings.TrimSpace(f.drafts[q.ID])
		if text == "" {
			if q.Required {
				f.mu.Unlock()
				return apperr.Validationf("question %q requires an answer", q.Text)
			}
			text = noAnswer
		}
		submitted = append(submitted, types.Answer{
			QuestionID:   q.ID,
			QuestionText: q.Text,
			Text:         text,
		})
	}

	if f.doc != nil && f.cache.Matches(submitted) {
		f.view = ViewPreview
		f.mu.Unlock()
		return nil
	}

	f.genToken++
	token := f.genToken
	f.generating = true
	f.view = ViewGeneratingDoc
	pc := f.projectContextLocked()
	tmpl := f.template
	f.mu.Unlock()

	parts, err := f.o.asm.BuildPayload(ctx, pc, tmpl.Type, submitted)
	if err == nil {
		var content string
		content, err = f.o.client.GenerateTextStream(ctx, parts, func(full string) {
			if f.tokenCurrent(token) && onChunk != nil {
				onChunk(full)
			}
		})
		if err == nil {
			return f.finishGeneration(token, tmpl, submitted, content)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genToken != token {
		// The user already navigated away; nothing to roll back.
		return nil
	}
	f.generating = false
	f.view = ViewInterview
	return apperr.Transient("document generation failed", err)
}

func (f *Flow) tokenCurrent(token uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.genToken == token
}

func (f *Flow) finishGeneration(token uint64, tmpl types.Template, submitted []types.Answer, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genToken != token {
		log.Printf("orchestrator: discarding stale generation result")
		return nil
	}
	f.generating = false
	f.doc = &types.GeneratedDocument{Title: tmpl.Name, Content: content}
	f.cache.Remember(submitted)
	f.view = ViewPreview
	return nil
}

// OpenArtifact resumes editing a saved artifact: the session is seeded from
// the stored answers and content and the flow jumps straight to preview,
// bypassing generation. The question set for the stored document type is
// reloaded so Edit Responses works; if that fails the questions are rebuilt
// from the stored answers.
func (f *Flow) OpenArtifact(ctx context.Context, projectID, artifactID string) error {
	f.mu.Lock()
	owner := f.ownerID
	f.mu.Unlock()

	p, err := f.o.store.GetProject(owner, projectID)
	if err != nil {
		return err
	}
	var target *types.DocumentArtifact
	for i := range p.Artifacts {
		if p.Artifacts[i].ID == artifactID {
			target = &p.Artifacts[i]
			break
		}
	}
	if target == nil {
		return apperr.NotFoundf("artifact %q not found", artifactID)
	}

	questions, qerr := f.o.bank.Questions(ctx, target.Type)
	if qerr != nil {
		log.Printf("orchestrator: question reload failed, rebuilding from answers: %v", qerr)
		questions = questionsFromAnswers(target.Answers)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetSessionLocked()
	f.project = &p
	f.template = types.TemplateFor(target.Type)
	f.questions = questions
	f.drafts = make(map[int]string, len(target.Answers))
	for _, a := range target.Answers {
		f.drafts[a.QuestionID] = a.Text
	}
	f.doc = &types.GeneratedDocument{Title: target.Title, Content: target.Content}
	f.editingID = target.ID
	f.cache.Seed(target.Answers)
	f.view = ViewPreview
	return nil
}

func questionsFromAnswers(answers []types.Answer) []types.Question {
	out := make([]types.Question, 0, len(answers))
	for _, a := range answers {
		out = append(out, types.Question{ID: a.QuestionID, Text: a.QuestionText})
	}
	return out
}

// EditResponses steps from preview back into the interview with the current
// drafts intact.
func (f *Flow) EditResponses() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.view != ViewPreview {
		return apperr.Validationf("no previewed document to edit")
	}
	f.view = ViewInterview
	return nil
}

// Back performs the reverse transition for the current view. Backing out of a
// busy view abandons the in-flight result.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.view {
	case ViewProjectDetails:
		f.project = nil
		f.view = ViewProjectsList
	case ViewTemplateSelect:
		f.view = ViewProjectDetails
	case ViewGeneratingQuestions:
		f.genToken++
		f.view = ViewTemplateSelect
	case ViewInterview:
		f.view = ViewTemplateSelect
	case ViewGeneratingDoc:
		f.genToken++
		f.generating = false
		f.view = ViewInterview
	case ViewPreview:
		// An edit-in-place session returns to the project; a fresh creation
		// returns to its interview.
		if f.editingID != "" {
			f.view = ViewProjectDetails
		} else {
			f.view = ViewInterview
		}
	}
}

// Save persists the previewed document. A session editing an existing
// artifact bumps its version by exactly one and overwrites content, answers
// and lastUpdated; a fresh session creates version 1. The local project copy
// is refreshed from the store after the write.
func (f *Flow) Save(ctx context.Context) (types.DocumentArtifact, error) {
	f.mu.Lock()
	if f.saving {
		f.mu.Unlock()
		return types.DocumentArtifact{}, apperr.Validationf("a save is already in progress")
	}
	if f.doc == nil {
		f.mu.Unlock()
		return types.DocumentArtifact{}, apperr.Validationf("no generated document to save")
	}
	if f.project == nil {
		f.mu.Unlock()
		return types.DocumentArtifact{}, apperr.Validationf("no active project")
	}
	f.saving = true
	owner := f.ownerID
	project := *f.project
	doc := *f.doc
	answers := f.cache.Snapshot()
	editingID := f.editingID
	docType := f.template.Type
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.saving = false
		f.mu.Unlock()
	}()

	now := time.Now().UTC()
	var artifact types.DocumentArtifact
	if editingID != "" {
		var existing *types.DocumentArtifact
		for i := range project.Artifacts {
			if project.Artifacts[i].ID == editingID {
				existing = &project.Artifacts[i]
				break
			}
		}
		if existing == nil {
			return types.DocumentArtifact{}, apperr.NotFoundf("artifact %q not found", editingID)
		}
		artifact = *existing
		artifact.Version++
		artifact.Title = doc.Title
		artifact.Content = doc.Content
		artifact.Answers = answers
		artifact.LastUpdated = now
	} else {
		artifact = types.DocumentArtifact{
			ID:          uuid.NewString(),
			Title:       doc.Title,
			Type:        docType,
			Content:     doc.Content,
			Answers:     answers,
			Version:     1,
			CreatedAt:   now,
			LastUpdated: now,
		}
	}

	if err := f.o.store.SaveArtifact(owner, project.ID, artifact); err != nil {
		return types.DocumentArtifact{}, err
	}

	refreshed, err := f.o.store.GetProject(owner, project.ID)
	f.mu.Lock()
	if err == nil {
		f.project = &refreshed
	}
	f.editingID = artifact.ID
	f.mu.Unlock()
	return artifact, nil
}

// UpdateContent writes refined content back into the previewed document.
func (f *Flow) UpdateContent(content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil {
		return apperr.Validationf("no previewed document to update")
	}
	f.doc.Content = content
	return nil
}

func (f *Flow) projectContextLocked() assembler.ProjectContext {
	if f.project == nil {
		return assembler.DefaultContext()
	}
	return assembler.ProjectContext{
		Name:        f.project.Name,
		Description: f.project.Description,
		Files:       f.project.Files,
	}
}
