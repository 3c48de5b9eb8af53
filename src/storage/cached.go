package storage

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedStorage wraps a BlobStorage with a bounded-TTL download cache.
// It is constructed once at startup and injected into the pipeline, so
// there is no hidden cross-run state beyond the configured TTL window.
// Uploads write through the cache so a run immediately sees its own writes.
type CachedStorage struct {
	inner BlobStorage
	cache *cache.Cache
}

func NewCachedStorage(inner BlobStorage, ttl, cleanupInterval time.Duration) *CachedStorage {
	return &CachedStorage{
		inner: inner,
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (s *CachedStorage) ListPaths(ctx context.Context, prefix string) ([]string, error) {
	// Listings are cheap relative to downloads and must reflect new uploads,
	// so they always go to the backing store.
	return s.inner.ListPaths(ctx, prefix)
}

func (s *CachedStorage) DownloadText(ctx context.Context, path string) (string, error) {
	if cached, found := s.cache.Get(path); found {
		if content, ok := cached.(string); ok {
			return content, nil
		}
	}
	content, err := s.inner.DownloadText(ctx, path)
	if err != nil {
		return "", err
	}
	s.cache.SetDefault(path, content)
	return content, nil
}

func (s *CachedStorage) UploadText(ctx context.Context, path, content, contentType string) error {
	if err := s.inner.UploadText(ctx, path, content, contentType); err != nil {
		// The backing store may or may not hold the new content now; drop
		// the stale entry rather than guess.
		s.cache.Delete(path)
		return err
	}
	s.cache.SetDefault(path, content)
	return nil
}

func (s *CachedStorage) Exists(ctx context.Context, path string) (bool, error) {
	if _, found := s.cache.Get(path); found {
		return true, nil
	}
	return s.inner.Exists(ctx, path)
}
