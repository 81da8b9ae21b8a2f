package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tanpawarit/chative-task-router/pkg/pathlock"
)

/* ------------------------------ MemoryStore ------------------------------ */

type MemoryStore struct {
	mu      sync.RWMutex
	ratings []int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, rating int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rating < MinRating || rating > MaxRating {
		return ErrOutOfRange
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratings = append(m.ratings, rating)
	return nil
}

func (m *MemoryStore) All(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.ratings...), nil
}

/* ------------------------------- FileStore ------------------------------- */

// FileStore keeps ratings as a JSON array of integers.
// Every FileStore opened on the same path shares one lock.
type FileStore struct {
	mu   *sync.RWMutex
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("ratings path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve ratings path: %w", err)
	}
	return &FileStore{path: abs, mu: pathlock.For(abs)}, nil
}

func (s *FileStore) Append(ctx context.Context, rating int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rating < MinRating || rating > MaxRating {
		return ErrOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	all = append(all, rating)

	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("encode ratings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ratings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write ratings file: %w", err)
	}
	return nil
}

func (s *FileStore) All(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *FileStore) read() ([]int, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ratings file: %w", err)
	}
	all := []int{}
	if len(raw) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode ratings file: %w", err)
	}
	if all == nil {
		all = []int{}
	}
	return all, nil
}
