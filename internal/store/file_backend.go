package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"analystpro/internal/apperr"
	"analystpro/internal/types"
)

// fileSchemaVersion is stamped into the JSON document so a future layout
// change can detect and migrate old files instead of misreading them.
const fileSchemaVersion = 1

type fileDoc struct {
	SchemaVersion int             `json:"schemaVersion"`
	Projects      []types.Project `json:"projects"`
}

func errProjectNotFound(projectID string) error {
	return apperr.NotFoundf("project %q not found", projectID)
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var doc fileDoc
		if err := json.Unmarshal(b, &doc); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, p := range doc.Projects {
			p = normalizeProject(p)
			if p.ID == "" {
				continue
			}
			s.byID[p.ID] = p
		}
	})
}

// saveFile writes the whole map back. Callers must not hold s.mu.
func (s *Store) saveFile() error {
	s.mu.RLock()
	doc := fileDoc{SchemaVersion: fileSchemaVersion}
	doc.Projects = make([]types.Project, 0, len(s.byID))
	for _, p := range s.byID {
		doc.Projects = append(doc.Projects, p)
	}
	s.mu.RUnlock()
	sortProjects(doc.Projects)

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return apperr.Persistence("encode project store", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Persistence("create store directory", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return apperr.Persistence("write project store", err)
	}
	return nil
}

func (s *Store) saveProjectFile(p types.Project) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	if existing, ok := s.byID[p.ID]; ok {
		// Artifacts are owned by SaveArtifact; a project upsert keeps them.
		p.Artifacts = existing.Artifacts
	}
	s.byID[p.ID] = p
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) getProjectFile(ownerID, projectID string) (types.Project, error) {
	s.ensureLoadedFile()
	if projectID == "" {
		return types.Project{}, errProjectNotFound(projectID)
	}
	s.mu.RLock()
	p, ok := s.byID[projectID]
	s.mu.RUnlock()
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		return types.Project{}, errProjectNotFound(projectID)
	}
	return normalizeProject(p), nil
}

func (s *Store) listProjectsFile(ownerID string) ([]types.Project, error) {
	s.ensureLoadedFile()
	s.mu.RLock()
	out := make([]types.Project, 0, len(s.byID))
	for _, p := range s.byID {
		if ownerID != "" && p.OwnerID != ownerID {
			continue
		}
		out = append(out, normalizeProject(p))
	}
	s.mu.RUnlock()
	sortProjects(out)
	return out, nil
}

func (s *Store) deleteProjectFile(ownerID, projectID string) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		s.mu.Unlock()
		return errProjectNotFound(projectID)
	}
	delete(s.byID, projectID)
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) saveArtifactFile(ownerID, projectID string, a types.DocumentArtifact) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	p, ok := s.byID[projectID]
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		s.mu.Unlock()
		return errProjectNotFound(projectID)
	}
	replaced := false
	for i := range p.Artifacts {
		if p.Artifacts[i].ID == a.ID {
			p.Artifacts[i] = a
			replaced = true
			break
		}
	}
	if !replaced {
		p.Artifacts = append(p.Artifacts, a)
	}
	sortArtifacts(p.Artifacts)
	s.byID[projectID] = p
	s.mu.Unlock()
	return s.saveFile()
}

func (s *Store) listArtifactsFile(projectID string) ([]types.DocumentArtifact, error) {
	s.ensureLoadedFile()
	if projectID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[projectID]
	if !ok {
		return nil, nil
	}
	out := make([]types.DocumentArtifact, len(p.Artifacts))
	copy(out, p.Artifacts)
	sortArtifacts(out)
	return out, nil
}
