// Package store persists projects and their versioned document artifacts.
// Two backends share one Store: a JSON file for local runs and Postgres when
// a DSN is configured. Backend selection happens once at construction; every
// method dispatches on which handle is set.
package store

import (
	"database/sql"
	"os"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"analystpro/internal/types"
)

// EnvDSN selects the Postgres backend when set.
const EnvDSN = "ARTIFACT_STORE_PG_DSN"

type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]types.Project

	schemaOnce sync.Once
	schemaErr  error

	artifactCache *lru.Cache[string, []types.DocumentArtifact]
}

// New opens a file-backed store rooted at path. The file is created lazily on
// first save.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]types.Project),
	}
}

// NewPostgres opens a Postgres-backed store and verifies connectivity.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, []types.DocumentArtifact](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, artifactCache: cache}, nil
}

// NewFromEnv picks Postgres when ARTIFACT_STORE_PG_DSN is set and reachable,
// the file backend otherwise.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv(EnvDSN))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveProject validates and upserts a project. Artifacts attached to the
// project are saved through SaveArtifact, not here.
func (s *Store) SaveProject(p types.Project) error {
	if s == nil {
		return nil
	}
	p = normalizeProject(p)
	if err := p.Validate(); err != nil {
		return err
	}
	if s.db != nil {
		return s.saveProjectDB(p)
	}
	return s.saveProjectFile(p)
}

// GetProject returns the project with its artifacts, newest first. Ownership
// is part of the key: a project belonging to another owner is not found.
func (s *Store) GetProject(ownerID, projectID string) (types.Project, error) {
	if s == nil {
		return types.Project{}, errProjectNotFound(projectID)
	}
	if s.db != nil {
		return s.getProjectDB(strings.TrimSpace(ownerID), strings.TrimSpace(projectID))
	}
	return s.getProjectFile(strings.TrimSpace(ownerID), strings.TrimSpace(projectID))
}

// ListProjects returns the owner's projects ordered newest first by creation
// time. Artifacts are included.
func (s *Store) ListProjects(ownerID string) ([]types.Project, error) {
	if s == nil {
		return nil, nil
	}
	if s.db != nil {
		return s.listProjectsDB(strings.TrimSpace(ownerID))
	}
	return s.listProjectsFile(strings.TrimSpace(ownerID))
}

// DeleteProject removes a project and everything under it. Artifacts go
// first so a failure mid-delete never leaves orphaned children pointing at a
// missing parent.
func (s *Store) DeleteProject(ownerID, projectID string) error {
	if s == nil {
		return nil
	}
	if s.db != nil {
		err := s.deleteProjectDB(strings.TrimSpace(ownerID), strings.TrimSpace(projectID))
		if err == nil && s.artifactCache != nil {
			s.artifactCache.Remove(strings.TrimSpace(projectID))
		}
		return err
	}
	return s.deleteProjectFile(strings.TrimSpace(ownerID), strings.TrimSpace(projectID))
}

// SaveArtifact upserts one document artifact under a project the owner holds.
func (s *Store) SaveArtifact(ownerID, projectID string, a types.DocumentArtifact) error {
	if s == nil {
		return nil
	}
	ownerID = strings.TrimSpace(ownerID)
	projectID = strings.TrimSpace(projectID)
	if s.db != nil {
		err := s.saveArtifactDB(ownerID, projectID, a)
		if err == nil && s.artifactCache != nil {
			s.artifactCache.Remove(projectID)
		}
		return err
	}
	return s.saveArtifactFile(ownerID, projectID, a)
}

// ListArtifacts returns a project's artifacts, most recently updated first.
// The Postgres path keeps a small LRU in front of the query; writes through
// SaveArtifact and DeleteProject invalidate it.
func (s *Store) ListArtifacts(projectID string) ([]types.DocumentArtifact, error) {
	if s == nil {
		return nil, nil
	}
	pid := strings.TrimSpace(projectID)
	if s.db != nil {
		if s.artifactCache != nil {
			if cached, ok := s.artifactCache.Get(pid); ok {
				return cached, nil
			}
		}
		artifacts, err := s.listArtifactsDB(pid)
		if err != nil {
			return nil, err
		}
		if s.artifactCache != nil {
			s.artifactCache.Add(pid, artifacts)
		}
		return artifacts, nil
	}
	return s.listArtifactsFile(pid)
}

func normalizeProject(p types.Project) types.Project {
	p.ID = strings.TrimSpace(p.ID)
	p.OwnerID = strings.TrimSpace(p.OwnerID)
	p.Name = strings.TrimSpace(p.Name)
	sortArtifacts(p.Artifacts)
	return p
}

func sortArtifacts(artifacts []types.DocumentArtifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].LastUpdated.After(artifacts[j].LastUpdated)
	})
}

func sortProjects(projects []types.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
}
