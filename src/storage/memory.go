package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is an in-memory BlobStorage used by tests and local runs.
// It counts downloads per path so tests can assert on re-download behavior.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string]string
	downloads map[string]int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:   make(map[string]string),
		downloads: make(map[string]int),
	}
}

// Put seeds an object without counting as an upload.
func (s *MemoryStorage) Put(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = content
}

// DownloadCount reports how many times the object at path has been downloaded.
func (s *MemoryStorage) DownloadCount(path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.downloads[path]
}

func (s *MemoryStorage) ListPaths(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for p := range s.objects {
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *MemoryStorage) DownloadText(ctx context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.objects[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrObjectNotFound, path)
	}
	s.downloads[path]++
	return content, nil
}

func (s *MemoryStorage) UploadText(ctx context.Context, path, content, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = content
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}
