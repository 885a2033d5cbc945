// Package store publishes semantic layers for downstream consumers and reads them back.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/semlayer/semlayer/internal/semantic"
)

// ErrNotFound is returned by Fetch when nothing has been published yet
var ErrNotFound = errors.New("semantic layer not found")

// Store publishes and fetches serialized semantic layers
type Store interface {
	Publish(ctx context.Context, layer *semantic.Layer) error
	Fetch(ctx context.Context) (*semantic.Layer, error)
}

// FileStore keeps the layer in a JSON file
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store writes to
func (s *FileStore) Path() string {
	return s.path
}

// Publish writes the layer, replacing any previous file
func (s *FileStore) Publish(_ context.Context, layer *semantic.Layer) error {
	return layer.SaveToFile(s.path)
}

// Fetch reads the layer back
func (s *FileStore) Fetch(_ context.Context) (*semantic.Layer, error) {
	layer, err := semantic.Load(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	return layer, err
}
