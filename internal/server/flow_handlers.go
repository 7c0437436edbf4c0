package server

import (
	"net/http"
	"strings"

	"analystpro/internal/apperr"
	"analystpro/internal/assembler"
	"analystpro/internal/auth"
	"analystpro/internal/refine"
	"analystpro/internal/types"
)

func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	sid := s.newFlow(session.UserID)
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sid})
}

func (s *Server) handleFlowState(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out := map[string]any{
		"view":         flow.View(),
		"questions":    flow.Questions(),
		"answers":      flow.Answers(),
		"isGenerating": flow.IsGenerating(),
		"isSaving":     flow.IsSaving(),
	}
	if p, ok := flow.Project(); ok {
		out["project"] = p
	}
	if doc, ok := flow.Document(); ok {
		out["document"] = doc
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleOpenProject(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		ProjectID string `json:"projectId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := flow.OpenProject(in.ProjectID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": flow.View()})
}

func (s *Server) handleStartDocument(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	flow.StartDocument()
	writeJSON(w, http.StatusOK, map[string]any{"view": flow.View()})
}

func (s *Server) handleSelectTemplate(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Type string `json:"type"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	tmpl := types.TemplateFor(types.ParseDocType(in.Type))
	if err := flow.SelectTemplate(r.Context(), tmpl); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":      flow.View(),
		"questions": flow.Questions(),
		"answers":   flow.Answers(),
	})
}

func (s *Server) handleSetAnswer(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		QuestionID int    `json:"questionId"`
		Text       string `json:"text"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	flow.SetAnswer(in.QuestionID, in.Text)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSuggestAnswer(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Question string `json:"question"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(in.Question) == "" {
		writeError(w, apperr.Validationf("question text is required"))
		return
	}
	pc := assembler.DefaultContext()
	if p, ok := flow.Project(); ok {
		pc = assembler.ProjectContext{Name: p.Name, Description: p.Description, Files: p.Files}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"suggestion": s.asm.SuggestAnswer(r.Context(), in.Question, pc),
	})
}

// handleCompleteInterview runs generation synchronously; progress goes to
// websocket subscribers, the final document comes back in the response.
func (s *Server) handleCompleteInterview(w http.ResponseWriter, r *http.Request) {
	flow, sid, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	err = flow.CompleteInterview(r.Context(), func(full string) {
		s.hub.publish(sid, full, false)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	doc, ok := flow.Document()
	if ok {
		s.hub.publish(sid, doc.Content, true)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"view":     flow.View(),
		"document": doc,
	})
}

func (s *Server) handleOpenArtifact(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		ProjectID  string `json:"projectId"`
		ArtifactID string `json:"artifactId"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := flow.OpenArtifact(r.Context(), in.ProjectID, in.ArtifactID); err != nil {
		writeError(w, err)
		return
	}
	doc, _ := flow.Document()
	writeJSON(w, http.StatusOK, map[string]any{
		"view":      flow.View(),
		"document":  doc,
		"questions": flow.Questions(),
		"answers":   flow.Answers(),
	})
}

func (s *Server) handleEditResponses(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := flow.EditResponses(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": flow.View()})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	flow.Back()
	writeJSON(w, http.StatusOK, map[string]any{"view": flow.View()})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	artifact, err := flow.Save(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, ok := flow.Document()
	if !ok {
		writeError(w, apperr.Validationf("no previewed document"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sections": refine.Sections(doc.Content)})
}

func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	flow, _, err := s.flow(r)
	if err != nil {
		writeError(w, err)
		return
	}
	doc, ok := flow.Document()
	if !ok {
		writeError(w, apperr.Validationf("no previewed document to refine"))
		return
	}
	var in struct {
		Section     string `json:"section"`
		Instruction string `json:"instruction"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	revised, err := s.refiner.Refine(r.Context(), doc.Content, in.Section, in.Instruction)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := flow.UpdateContent(revised); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": revised})
}
