// Package blobstore stores uploaded report files. It defines the
// Store contract, an in-memory implementation for tests and
// development, a Google Cloud Storage backend, and a signed-URL
// layer for handing downloads to clients without exposing the
// bucket.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("blob not found")
	ErrTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedType = errors.New("content type is not allowed")
)

// MaxFileSize caps uploads at 20 MB, which covers multi-page scans.
const MaxFileSize = 20 * 1024 * 1024

// AllowedContentTypes lists the file types the parsing providers
// accept.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// Blob is stored file content with its type.
type Blob struct {
	Data        []byte
	ContentType string
	CreatedAt   time.Time
}

// Store is the contract for report file backends. Paths are
// account-scoped ("<account_id>/<document_id>.<ext>") so one
// account's files can be enumerated or wiped together.
type Store interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Get(ctx context.Context, path string) (*Blob, error)
	Delete(ctx context.Context, path string) error
}

// ValidateUpload checks size and content type before anything is
// persisted.
func ValidateUpload(contentType string, size int64) error {
	if size > MaxFileSize {
		return ErrTooLarge
	}
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return nil
}

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*Blob)}
}

func (s *MemoryStore) Put(_ context.Context, path, contentType string, data []byte) error {
	if err := ValidateUpload(contentType, int64(len(data))); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.blobs[path] = &Blob{Data: cp, ContentType: contentType, CreatedAt: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, path string) (*Blob, error) {
	s.mu.RLock()
	b, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, path)
	return nil
}

// Len reports how many blobs are held. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// readAll drains r up to MaxFileSize, failing on larger inputs.
func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// ReadUpload reads an incoming multipart file within the size limit.
func ReadUpload(r io.Reader) ([]byte, error) { return readAll(r) }
