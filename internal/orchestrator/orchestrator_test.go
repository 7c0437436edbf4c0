package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"analystpro/internal/apperr"
	"analystpro/internal/assembler"
	"analystpro/internal/filecodec"
	"analystpro/internal/llm"
	"analystpro/internal/questionbank"
	"analystpro/internal/store"
	"analystpro/internal/types"
)

type fixture struct {
	fake  *llm.FakeClient
	store *store.Store
	flow  *Flow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := &llm.FakeClient{StreamParts: []string{"# BRD\n\n", "## Scope\nPayments only."}}
	st := store.New(filepath.Join(t.TempDir(), "projects.json"))
	o := New(
		questionbank.New(fake, questionbank.FallbackStatic),
		assembler.New(fake, filecodec.New(), assembler.Options{DisableGrounding: true}),
		fake,
		st,
	)
	return &fixture{fake: fake, store: st, flow: o.NewFlow("alice")}
}

func (fx *fixture) seedProject(t *testing.T, id string) {
	t.Helper()
	err := fx.store.SaveProject(types.Project{
		ID: id, OwnerID: "alice", Name: "Checkout Redesign", CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
}

// startInterview walks the flow to INTERVIEW with the BRD template selected.
func (fx *fixture) startInterview(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	fx.seedProject(t, "p1")
	if err := fx.flow.OpenProject("p1"); err != nil {
		t.Fatalf("OpenProject() error = %v", err)
	}
	fx.flow.StartDocument()
	tmpl := types.TemplateFor(types.DocTypeBRD)
	if err := fx.flow.SelectTemplate(ctx, tmpl); err != nil {
		t.Fatalf("SelectTemplate() error = %v", err)
	}
	if got := fx.flow.View(); got != ViewInterview {
		t.Fatalf("view = %v, want INTERVIEW", got)
	}
}

func (fx *fixture) answerAll() {
	for _, q := range fx.flow.Questions() {
		fx.flow.SetAnswer(q.ID, "answer "+q.Text)
	}
}

func TestNewArtifactFlow(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)

	if got := len(fx.flow.Questions()); got != 12 {
		t.Fatalf("BRD interview has %d questions, want 12", got)
	}
	fx.answerAll()

	var streamed []string
	if err := fx.flow.CompleteInterview(ctx, func(full string) {
		streamed = append(streamed, full)
	}); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	if got := fx.flow.View(); got != ViewPreview {
		t.Fatalf("view = %v, want PREVIEW", got)
	}
	doc, ok := fx.flow.Document()
	if !ok || !strings.Contains(doc.Content, "Payments only") {
		t.Fatalf("Document() = %+v, %v", doc, ok)
	}
	// Each callback must carry the full accumulated text, not a delta.
	if len(streamed) != 2 || streamed[1] != doc.Content || !strings.HasPrefix(streamed[1], streamed[0]) {
		t.Fatalf("stream snapshots = %q", streamed)
	}

	saved, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Version != 1 || saved.Type != types.DocTypeBRD {
		t.Fatalf("Save() = %+v, want version 1 BRD", saved)
	}
	if len(saved.Answers) != 12 {
		t.Fatalf("saved %d answers, want 12", len(saved.Answers))
	}
}

func TestIdempotentRegeneration(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()

	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	if fx.fake.StreamCalls != 1 {
		t.Fatalf("StreamCalls = %d, want 1", fx.fake.StreamCalls)
	}

	if err := fx.flow.EditResponses(); err != nil {
		t.Fatalf("EditResponses() error = %v", err)
	}
	// Unchanged answers: the flow must reach preview without a second call.
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() (identical) error = %v", err)
	}
	if fx.fake.StreamCalls != 1 {
		t.Fatalf("StreamCalls = %d after identical re-submit, want 1", fx.fake.StreamCalls)
	}
	if got := fx.flow.View(); got != ViewPreview {
		t.Fatalf("view = %v, want PREVIEW", got)
	}

	// A changed answer regenerates.
	if err := fx.flow.EditResponses(); err != nil {
		t.Fatalf("EditResponses() error = %v", err)
	}
	fx.flow.SetAnswer(0, "a different title")
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() (changed) error = %v", err)
	}
	if fx.fake.StreamCalls != 2 {
		t.Fatalf("StreamCalls = %d after changed answers, want 2", fx.fake.StreamCalls)
	}
}

func TestRequiredQuestionGating(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()
	fx.flow.SetAnswer(0, "   ") // first BRD question is required

	err := fx.flow.CompleteInterview(ctx, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("CompleteInterview() error = %v, want validation", err)
	}
	if got := fx.flow.View(); got != ViewInterview {
		t.Fatalf("view = %v, want INTERVIEW after gating", got)
	}
	if fx.fake.StreamCalls != 0 {
		t.Fatalf("gated submission still called the model")
	}
}

func TestOptionalBlanksGetSentinel(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	for _, q := range fx.flow.Questions() {
		if q.Required {
			fx.flow.SetAnswer(q.ID, "answered")
		}
	}

	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	saved, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	sentinels := 0
	for _, a := range saved.Answers {
		if a.Text == noAnswer {
			sentinels++
		}
	}
	if sentinels != 4 {
		t.Fatalf("%d sentinel answers, want 4 optional BRD blanks", sentinels)
	}
}

func TestGenerationFailureRollsBackOneStep(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()
	fx.fake.StreamErr = errors.New("model unavailable")

	err := fx.flow.CompleteInterview(ctx, nil)
	if !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("CompleteInterview() error = %v, want transient", err)
	}
	if got := fx.flow.View(); got != ViewInterview {
		t.Fatalf("view = %v, want INTERVIEW after failure", got)
	}
	if _, ok := fx.flow.Document(); ok {
		t.Fatal("failed generation left a document behind")
	}
	if _, err := fx.flow.Save(ctx); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("Save() after failure error = %v, want validation", err)
	}
}

func TestVersionMonotonicity(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	first, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := fx.flow.EditResponses(); err != nil {
		t.Fatalf("EditResponses() error = %v", err)
	}
	fx.flow.SetAnswer(0, "retitled")
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	second, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second save created a new artifact: %s vs %s", second.ID, first.ID)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d after %d, want +1", second.Version, first.Version)
	}
	if !second.LastUpdated.After(first.LastUpdated) && !second.LastUpdated.Equal(first.LastUpdated) {
		t.Fatalf("lastUpdated not advanced: %v -> %v", first.LastUpdated, second.LastUpdated)
	}
}

func TestOpenArtifactResumesWithoutGeneration(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.seedProject(t, "p1")
	answers := []types.Answer{
		{QuestionID: 0, QuestionText: "What is the project title and background?", Text: "Checkout"},
	}
	err := fx.store.SaveArtifact("alice", "p1", types.DocumentArtifact{
		ID: "doc1", Title: "BRD", Type: types.DocTypeBRD,
		Content: "# Stored BRD", Answers: answers, Version: 4,
		CreatedAt: time.Now(), LastUpdated: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	if err := fx.flow.OpenArtifact(ctx, "p1", "doc1"); err != nil {
		t.Fatalf("OpenArtifact() error = %v", err)
	}
	if got := fx.flow.View(); got != ViewPreview {
		t.Fatalf("view = %v, want PREVIEW", got)
	}
	if fx.fake.StreamCalls != 0 {
		t.Fatalf("resume triggered a generation")
	}
	doc, _ := fx.flow.Document()
	if doc.Content != "# Stored BRD" {
		t.Fatalf("Document() = %+v", doc)
	}
	// Question set is reloaded for the stored type so editing works.
	if got := len(fx.flow.Questions()); got != 12 {
		t.Fatalf("reloaded %d questions, want 12", got)
	}
	if fx.flow.Answers()[0] != "Checkout" {
		t.Fatalf("stored answer not seeded: %v", fx.flow.Answers())
	}

	saved, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID != "doc1" || saved.Version != 5 {
		t.Fatalf("resume save = %+v, want doc1 v5", saved)
	}
}

func TestStaleGenerationResultDiscarded(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()

	// Navigate away mid-stream; the landing result must not populate the
	// abandoned session.
	left := false
	err := fx.flow.CompleteInterview(ctx, func(string) {
		if !left {
			left = true
			fx.flow.OpenProjects()
		}
	})
	if err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	if got := fx.flow.View(); got != ViewProjectsList {
		t.Fatalf("view = %v, want PROJECTS_LIST", got)
	}
	if _, ok := fx.flow.Document(); ok {
		t.Fatal("stale generation populated the session")
	}
}

func TestBackFromPreviewDependsOnMode(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Fresh creation: preview backs into the interview.
	fx.startInterview(t)
	fx.answerAll()
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	fx.flow.Back()
	if got := fx.flow.View(); got != ViewInterview {
		t.Fatalf("fresh-creation back = %v, want INTERVIEW", got)
	}

	// Edit-in-place: preview backs into the project details.
	fx2 := newFixture(t)
	fx2.seedProject(t, "p1")
	if err := fx2.store.SaveArtifact("alice", "p1", types.DocumentArtifact{
		ID: "doc1", Type: types.DocTypeBRD, Version: 1,
	}); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}
	if err := fx2.flow.OpenArtifact(ctx, "p1", "doc1"); err != nil {
		t.Fatalf("OpenArtifact() error = %v", err)
	}
	fx2.flow.Back()
	if got := fx2.flow.View(); got != ViewProjectDetails {
		t.Fatalf("edit-in-place back = %v, want PROJECT_DETAILS", got)
	}
}

func TestUpdateContentPersistsOnSave(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.startInterview(t)
	fx.answerAll()
	if err := fx.flow.CompleteInterview(ctx, nil); err != nil {
		t.Fatalf("CompleteInterview() error = %v", err)
	}
	if err := fx.flow.UpdateContent("# Refined"); err != nil {
		t.Fatalf("UpdateContent() error = %v", err)
	}
	saved, err := fx.flow.Save(ctx)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.Content != "# Refined" {
		t.Fatalf("saved content = %q", saved.Content)
	}
}
