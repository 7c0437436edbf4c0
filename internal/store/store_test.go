package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"analystpro/internal/apperr"
	"analystpro/internal/types"
)

func fileStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "projects.json"))
}

func sampleProject(id, owner string, created time.Time) types.Project {
	return types.Project{
		ID:        id,
		OwnerID:   owner,
		Name:      "Project " + id,
		CreatedAt: created,
	}
}

func TestSaveAndGetProject(t *testing.T) {
	s := fileStore(t)
	p := sampleProject("p1", "alice", time.Now().UTC())
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	got, err := s.GetProject("alice", "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Name != "Project p1" || got.OwnerID != "alice" {
		t.Fatalf("GetProject() = %+v", got)
	}
}

func TestGetProjectEnforcesOwnership(t *testing.T) {
	s := fileStore(t)
	if err := s.SaveProject(sampleProject("p1", "alice", time.Now())); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if _, err := s.GetProject("mallory", "p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cross-owner read error = %v, want not found", err)
	}
}

func TestSaveProjectRejectsInvalid(t *testing.T) {
	s := fileStore(t)
	if err := s.SaveProject(types.Project{ID: "p1", OwnerID: "alice"}); err == nil {
		t.Fatal("SaveProject() accepted a nameless project")
	}
}

func TestListProjectsNewestFirst(t *testing.T) {
	s := fileStore(t)
	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		p := sampleProject(id, "alice", base.Add(time.Duration(i)*time.Hour))
		if err := s.SaveProject(p); err != nil {
			t.Fatalf("SaveProject(%s) error = %v", id, err)
		}
	}
	if err := s.SaveProject(sampleProject("other", "bob", base)); err != nil {
		t.Fatalf("SaveProject(other) error = %v", err)
	}

	got, err := s.ListProjects("alice")
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListProjects() = %d projects, want 3", len(got))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if got[i].ID != want {
			t.Fatalf("ListProjects()[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestSaveArtifactOrdersByLastUpdated(t *testing.T) {
	s := fileStore(t)
	if err := s.SaveProject(sampleProject("p1", "alice", time.Now())); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	base := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		a := types.DocumentArtifact{
			ID: id, Title: id, Type: types.DocTypeBRD, Version: 1,
			CreatedAt: base, LastUpdated: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveArtifact("alice", "p1", a); err != nil {
			t.Fatalf("SaveArtifact(%s) error = %v", id, err)
		}
	}

	got, err := s.ListArtifacts("p1")
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(got) != 3 || got[0].ID != "c" || got[2].ID != "a" {
		t.Fatalf("ListArtifacts() order = %+v", got)
	}
}

func TestSaveArtifactUpsertsByID(t *testing.T) {
	s := fileStore(t)
	if err := s.SaveProject(sampleProject("p1", "alice", time.Now())); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	a := types.DocumentArtifact{ID: "doc", Title: "v1", Version: 1, LastUpdated: time.Now()}
	if err := s.SaveArtifact("alice", "p1", a); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	a.Title = "v2"
	a.Version = 2
	a.LastUpdated = a.LastUpdated.Add(time.Minute)
	if err := s.SaveArtifact("alice", "p1", a); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	got, err := s.ListArtifacts("p1")
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(got) != 1 || got[0].Version != 2 || got[0].Title != "v2" {
		t.Fatalf("upsert produced %+v", got)
	}
}

func TestSaveArtifactUnknownProject(t *testing.T) {
	s := fileStore(t)
	err := s.SaveArtifact("alice", "ghost", types.DocumentArtifact{ID: "doc"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("SaveArtifact() error = %v, want not found", err)
	}
}

func TestDeleteProjectRemovesChildren(t *testing.T) {
	s := fileStore(t)
	if err := s.SaveProject(sampleProject("p1", "alice", time.Now())); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if err := s.SaveArtifact("alice", "p1", types.DocumentArtifact{ID: "doc", Version: 1}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}
	if err := s.DeleteProject("alice", "p1"); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	if _, err := s.GetProject("alice", "p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted project still readable: %v", err)
	}
	artifacts, err := s.ListArtifacts("p1")
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(artifacts) != 0 {
		t.Fatalf("artifacts survived delete: %+v", artifacts)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.json")
	s := New(path)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := s.SaveProject(sampleProject("p1", "alice", created)); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if err := s.SaveArtifact("alice", "p1", types.DocumentArtifact{
		ID: "doc", Type: types.DocTypeSRS, Version: 3,
		CreatedAt: created, LastUpdated: created.Add(time.Hour),
	}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	reopened := New(path)
	got, err := reopened.GetProject("alice", "p1")
	if err != nil {
		t.Fatalf("GetProject() after reopen error = %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Version != 3 || got.Artifacts[0].Type != types.DocTypeSRS {
		t.Fatalf("artifact lost on reopen: %+v", got.Artifacts)
	}
}

func TestProjectUpsertKeepsArtifacts(t *testing.T) {
	s := fileStore(t)
	p := sampleProject("p1", "alice", time.Now())
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}
	if err := s.SaveArtifact("alice", "p1", types.DocumentArtifact{ID: "doc", Version: 1}); err != nil {
		t.Fatalf("SaveArtifact() error = %v", err)
	}

	p.Description = "renamed"
	if err := s.SaveProject(p); err != nil {
		t.Fatalf("SaveProject() update error = %v", err)
	}
	got, err := s.GetProject("alice", "p1")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got.Description != "renamed" || len(got.Artifacts) != 1 {
		t.Fatalf("upsert dropped artifacts: %+v", got)
	}
}
