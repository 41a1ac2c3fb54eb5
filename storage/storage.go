// Package storage defines the byte-blob collaborator the pipeline reads
// raw logs from and writes parsed rows and reports to.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports that no object exists at the requested key. Callers
// distinguish it from transport failures with errors.Is.
var ErrNotFound = errors.New("object not found")

// ObjectStore is a flat key to byte-blob store.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}
