// Package memory implementa el object store en memoria, para desarrollo
// y tests. Las URLs devueltas no son servibles: solo identifican el objeto.
package memory

import (
	"context"
	"io"
	"sync"
)

type Object struct {
	ContentType string
	Data        []byte
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

func (s *Store) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = Object{ContentType: contentType, Data: data}

	return "memory://" + path, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// Get expone el objeto guardado; lo usan los tests para verificar subidas.
func (s *Store) Get(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[path]
	return o, ok
}
