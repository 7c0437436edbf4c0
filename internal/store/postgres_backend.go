package store

import (
	"encoding/json"

	"analystpro/internal/apperr"
	"analystpro/internal/types"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL DEFAULT '',
  name TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  files JSONB NOT NULL DEFAULT '[]',
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS project_artifacts (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  doc_type TEXT NOT NULL DEFAULT '',
  content TEXT NOT NULL DEFAULT '',
  answers JSONB NOT NULL DEFAULT '[]',
  version INTEGER NOT NULL DEFAULT 1,
  created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
  last_updated TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects (owner_id);
CREATE INDEX IF NOT EXISTS idx_project_artifacts_project_id ON project_artifacts (project_id);
`)
	})
	if s.schemaErr != nil {
		return apperr.Persistence("ensure store schema", s.schemaErr)
	}
	return nil
}

func (s *Store) saveProjectDB(p types.Project) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	files, err := json.Marshal(p.Files)
	if err != nil {
		return apperr.Persistence("encode project files", err)
	}
	_, err = s.db.Exec(`
INSERT INTO projects (id, owner_id, name, description, files, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id)
DO UPDATE SET owner_id=EXCLUDED.owner_id,
  name=EXCLUDED.name,
  description=EXCLUDED.description,
  files=EXCLUDED.files`,
		p.ID, p.OwnerID, p.Name, p.Description, files, p.CreatedAt)
	if err != nil {
		return apperr.Persistence("save project", err)
	}
	return nil
}

func (s *Store) getProjectDB(ownerID, projectID string) (types.Project, error) {
	if err := s.ensureSchema(); err != nil {
		return types.Project{}, err
	}
	if projectID == "" {
		return types.Project{}, errProjectNotFound(projectID)
	}
	row := s.db.QueryRow(`SELECT id, owner_id, name, description, files, created_at
FROM projects WHERE id = $1 AND ($2 = '' OR owner_id = $2)`, projectID, ownerID)

	var p types.Project
	var files []byte
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &files, &p.CreatedAt); err != nil {
		return types.Project{}, errProjectNotFound(projectID)
	}
	if err := json.Unmarshal(files, &p.Files); err != nil {
		return types.Project{}, apperr.Persistence("decode project files", err)
	}
	artifacts, err := s.listArtifactsDB(p.ID)
	if err != nil {
		return types.Project{}, err
	}
	p.Artifacts = artifacts
	return normalizeProject(p), nil
}

func (s *Store) listProjectsDB(ownerID string) ([]types.Project, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, owner_id, name, description, files, created_at
FROM projects WHERE ($1 = '' OR owner_id = $1)
ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, apperr.Persistence("list projects", err)
	}
	defer rows.Close()

	out := make([]types.Project, 0, 16)
	for rows.Next() {
		var p types.Project
		var files []byte
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &files, &p.CreatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal(files, &p.Files); err != nil {
			continue
		}
		out = append(out, p)
	}
	for i := range out {
		artifacts, err := s.listArtifactsDB(out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Artifacts = artifacts
	}
	return out, nil
}

func (s *Store) deleteProjectDB(ownerID, projectID string) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Persistence("delete project", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	row := tx.QueryRow(`SELECT id FROM projects
WHERE id = $1 AND ($2 = '' OR owner_id = $2) FOR UPDATE`, projectID, ownerID)
	if err := row.Scan(&id); err != nil {
		return errProjectNotFound(projectID)
	}
	// Children before the parent so an interrupted delete never strands
	// artifact rows without a project.
	if _, err := tx.Exec(`DELETE FROM project_artifacts WHERE project_id = $1`, id); err != nil {
		return apperr.Persistence("delete project artifacts", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects WHERE id = $1`, id); err != nil {
		return apperr.Persistence("delete project", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Persistence("delete project", err)
	}
	return nil
}

func (s *Store) saveArtifactDB(ownerID, projectID string, a types.DocumentArtifact) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	var owner string
	row := s.db.QueryRow(`SELECT owner_id FROM projects WHERE id = $1`, projectID)
	if err := row.Scan(&owner); err != nil {
		return errProjectNotFound(projectID)
	}
	if ownerID != "" && owner != ownerID {
		return errProjectNotFound(projectID)
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return apperr.Persistence("encode artifact answers", err)
	}
	_, err = s.db.Exec(`
INSERT INTO project_artifacts (id, project_id, title, doc_type, content, answers, version, created_at, last_updated)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id)
DO UPDATE SET title=EXCLUDED.title,
  doc_type=EXCLUDED.doc_type,
  content=EXCLUDED.content,
  answers=EXCLUDED.answers,
  version=EXCLUDED.version,
  last_updated=EXCLUDED.last_updated`,
		a.ID, projectID, a.Title, string(a.Type), a.Content, answers, a.Version, a.CreatedAt, a.LastUpdated)
	if err != nil {
		return apperr.Persistence("save artifact", err)
	}
	return nil
}

func (s *Store) listArtifactsDB(projectID string) ([]types.DocumentArtifact, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	if projectID == "" {
		return nil, nil
	}
	rows, err := s.db.Query(`
SELECT id, title, doc_type, content, answers, version, created_at, last_updated
FROM project_artifacts
WHERE project_id = $1
ORDER BY last_updated DESC`, projectID)
	if err != nil {
		return nil, apperr.Persistence("list artifacts", err)
	}
	defer rows.Close()

	var out []types.DocumentArtifact
	for rows.Next() {
		var a types.DocumentArtifact
		var docType string
		var answers []byte
		if err := rows.Scan(&a.ID, &a.Title, &docType, &a.Content, &answers, &a.Version, &a.CreatedAt, &a.LastUpdated); err != nil {
			continue
		}
		a.Type = types.DocType(docType)
		if err := json.Unmarshal(answers, &a.Answers); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
