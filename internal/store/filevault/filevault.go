// Package filevault holds encoded reference-file payloads outside the
// project record. The memory vault backs local runs and tests; the S3 vault
// offloads payloads to object storage and can hand out presigned links.
package filevault

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var (
	ErrNotFound = errors.New("filevault: object not found")
	// ErrNoPresign is returned by vaults that cannot mint shareable links.
	ErrNoPresign = errors.New("filevault: presigned URLs not supported")
)

// Vault stores encoded payloads keyed by project and file name. Payloads are
// immutable once put; a second Put under the same key overwrites.
type Vault interface {
	Put(ctx context.Context, projectID, name string, payload []byte) error
	Get(ctx context.Context, projectID, name string) ([]byte, error)
	Delete(ctx context.Context, projectID, name string) error
	URL(ctx context.Context, projectID, name string) (string, error)
}

type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, projectID, name string, payload []byte) error {
	key, err := objectKey(projectID, name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), payload...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, projectID, name string) ([]byte, error) {
	key, err := objectKey(projectID, name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	payload, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *Memory) Delete(_ context.Context, projectID, name string) error {
	key, err := objectKey(projectID, name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) URL(context.Context, string, string) (string, error) {
	return "", ErrNoPresign
}

func objectKey(projectID, name string) (string, error) {
	pid := strings.TrimSpace(projectID)
	n := strings.TrimLeft(strings.TrimSpace(name), "/")
	if pid == "" || n == "" {
		return "", errors.New("filevault: project id and file name are required")
	}
	return pid + "/" + n, nil
}
