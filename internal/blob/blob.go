package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists one packaged archive and returns a retrievable location.
type Store interface {
	Put(ctx context.Context, data []byte, suggestedName string) (string, error)
}

type fileStore struct {
	root string
}

// NewFileStore creates a Store that writes blobs under root and returns
// file:// URLs.
func NewFileStore(root string) (Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &fileStore{root: root}, nil
}

func (s *fileStore) Put(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if suggestedName == "" {
		suggestedName = "artifact"
	}

	path := filepath.Join(s.root, filepath.Base(suggestedName))
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]

	// Never overwrite an existing blob; suffix until the name is free.
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = fmt.Sprintf("%s-%d%s", base, i, ext)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + abs, nil
}
