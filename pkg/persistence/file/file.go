// Package file provides file-based persistence for workflow records.
package file

import (
	"context"
	"os"
	"strings"
	"sync"
)

// Persistence implements the persistence.Persistence interface using the
// file system: one JSON document per workflow under <root>/workflows.
// Atomicity across processes is not provided; the store mutex serializes
// mutations within one process.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	if err := os.MkdirAll(workflowsDir(cleanRoot), 0750); err != nil {
		return nil, err
	}

	return &Persistence{root: cleanRoot}, nil
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying
// the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}
