// Package server exposes the document flow over a JSON API plus a websocket
// stream for generation progress.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"analystpro/internal/apperr"
	"analystpro/internal/assembler"
	"analystpro/internal/auth"
	"analystpro/internal/filecodec"
	"analystpro/internal/orchestrator"
	"analystpro/internal/refine"
	"analystpro/internal/store"
	"analystpro/internal/store/filevault"
)

type Server struct {
	orch     *orchestrator.Orchestrator
	store    *store.Store
	codec    *filecodec.Codec
	refiner  *refine.Engine
	asm      *assembler.Assembler
	verifier auth.TokenVerifier
	vault    filevault.Vault

	origins []string

	mu    sync.Mutex
	flows map[string]*flowEntry

	hub *streamHub
}

type flowEntry struct {
	owner string
	flow  *orchestrator.Flow
}

type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store
	Codec        *filecodec.Codec
	Refiner      *refine.Engine
	Assembler    *assembler.Assembler
	Verifier     auth.TokenVerifier
	Vault        filevault.Vault

	AllowedOrigins []string
}

func New(opts Options) *Server {
	return &Server{
		orch:     opts.Orchestrator,
		store:    opts.Store,
		codec:    opts.Codec,
		refiner:  opts.Refiner,
		asm:      opts.Assembler,
		verifier: opts.Verifier,
		vault:    opts.Vault,
		origins:  opts.AllowedOrigins,
		flows:    make(map[string]*flowEntry),
		hub:      newStreamHub(),
	}
}

// Handler builds the routed, CORS-wrapped, authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /api/projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	mux.HandleFunc("POST /api/projects/{id}/files", s.handleAttachFile)
	mux.HandleFunc("GET /api/projects/{id}/files/{name}/url", s.handleFileURL)

	mux.HandleFunc("POST /api/flows", s.handleCreateFlow)
	mux.HandleFunc("GET /api/flows/{sid}", s.handleFlowState)
	mux.HandleFunc("POST /api/flows/{sid}/open-project", s.handleOpenProject)
	mux.HandleFunc("POST /api/flows/{sid}/start-document", s.handleStartDocument)
	mux.HandleFunc("POST /api/flows/{sid}/select-template", s.handleSelectTemplate)
	mux.HandleFunc("POST /api/flows/{sid}/answers", s.handleSetAnswer)
	mux.HandleFunc("POST /api/flows/{sid}/suggest", s.handleSuggestAnswer)
	mux.HandleFunc("POST /api/flows/{sid}/complete", s.handleCompleteInterview)
	mux.HandleFunc("POST /api/flows/{sid}/open-artifact", s.handleOpenArtifact)
	mux.HandleFunc("POST /api/flows/{sid}/edit-responses", s.handleEditResponses)
	mux.HandleFunc("POST /api/flows/{sid}/back", s.handleBack)
	mux.HandleFunc("POST /api/flows/{sid}/save", s.handleSave)
	mux.HandleFunc("GET /api/flows/{sid}/sections", s.handleListSections)
	mux.HandleFunc("POST /api/flows/{sid}/refine", s.handleRefine)

	mux.HandleFunc("GET /ws/generation", s.handleGenerationWS)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(s.withAuth(mux))
}

// withAuth verifies the bearer token and stashes the session in the context.
// The websocket endpoint authenticates via query parameter because browsers
// cannot set headers on websocket dials.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		session, err := s.verifier.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (s *Server) newFlow(owner string) string {
	sid := uuid.NewString()
	s.mu.Lock()
	s.flows[sid] = &flowEntry{owner: owner, flow: s.orch.NewFlow(owner)}
	s.mu.Unlock()
	return sid
}

func (s *Server) flow(r *http.Request) (*orchestrator.Flow, string, error) {
	session, _ := auth.FromContext(r.Context())
	sid := r.PathValue("sid")
	if sid == "" {
		sid = strings.TrimSpace(r.URL.Query().Get("session"))
	}
	s.mu.Lock()
	entry, ok := s.flows[sid]
	s.mu.Unlock()
	if !ok || entry.owner != session.UserID {
		return nil, "", apperr.NotFoundf("flow %q not found", sid)
	}
	return entry.flow, sid, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.StatusFor(err), map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validationf("invalid JSON body")
	}
	return nil
}
