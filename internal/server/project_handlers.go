package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"analystpro/internal/apperr"
	"analystpro/internal/auth"
	"analystpro/internal/store/filevault"
	"analystpro/internal/types"
)

// maxUploadBytes bounds the multipart read; the real gate is the codec's
// compressed-size ceiling.
const maxUploadBytes = 32 << 20

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := make([]types.Template, 0, len(types.KnownDocTypes))
	for _, dt := range types.KnownDocTypes {
		templates = append(templates, types.TemplateFor(dt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	projects, err := s.store.ListProjects(session.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p := types.Project{
		ID:          uuid.NewString(),
		OwnerID:     session.UserID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.SaveProject(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	p, err := s.store.GetProject(session.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	p, err := s.store.GetProject(session.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.store.SaveProject(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	if err := s.store.DeleteProject(session.UserID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleAttachFile accepts one multipart file, encodes it through the codec
// and appends it to the project. Oversized files are rejected before any
// state changes.
func (s *Server) handleAttachFile(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	p, err := s.store.GetProject(session.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperr.Validationf("invalid multipart body"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validationf("a file part named %q is required", "file"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeError(w, apperr.Persistence("read upload", err))
		return
	}
	if len(raw) > maxUploadBytes {
		writeError(w, apperr.Validationf("upload exceeds %d bytes", maxUploadBytes))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	encoded, err := s.codec.Encode(header.Filename, mimeType, raw)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, existing := range p.Files {
		if existing.Name == encoded.Name {
			writeError(w, apperr.Validationf("file %q is already attached", encoded.Name))
			return
		}
	}

	if s.vault != nil {
		if err := s.vault.Put(r.Context(), p.ID, encoded.Name, encoded.Payload); err != nil {
			// The inline copy is authoritative; the vault copy only feeds
			// download links.
			log.Printf("server: vault offload of %q failed: %v", encoded.Name, err)
		}
	}

	p.Files = append(p.Files, encoded)
	if err := s.store.SaveProject(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, encoded)
}

// handleFileURL mints a presigned download link for an attached file when the
// vault backend supports it.
func (s *Server) handleFileURL(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.FromContext(r.Context())
	p, err := s.store.GetProject(session.UserID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	name := r.PathValue("name")
	found := false
	for _, f := range p.Files {
		if f.Name == name {
			found = true
			break
		}
	}
	if !found {
		writeError(w, apperr.NotFoundf("file %q not found", name))
		return
	}
	if s.vault == nil {
		writeError(w, apperr.Validationf("file links are not configured"))
		return
	}
	u, err := s.vault.URL(r.Context(), p.ID, name)
	if err != nil {
		if errors.Is(err, filevault.ErrNoPresign) {
			writeError(w, apperr.Validationf("file links are not supported by this storage backend"))
			return
		}
		writeError(w, apperr.Persistence("mint file link", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": u})
}
