// Package storage provides the repositories and blob stores the media
// filter runs against: an in-memory repository backed by a blob store, an
// adapter over the simple-content service, and policy stores.
package storage

import (
	"context"
	"io"
)

// Reader provides read access to stored blobs
type Reader interface {
	// GetReader returns a reader for the blob at the given key
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a blob exists at the given key
	Exists(ctx context.Context, key string) (bool, error)
}

// Metadata contains blob metadata
type Metadata struct {
	Size        int64
	ContentType string
	ETag        string
}

// ReaderWithMetadata provides read access with metadata
type ReaderWithMetadata interface {
	Reader

	// GetMetadata returns metadata for the blob at the given key
	GetMetadata(ctx context.Context, key string) (*Metadata, error)
}

// BlobStore stores asset bytes by key. Put must not make a partially
// written blob visible under key.
type BlobStore interface {
	ReaderWithMetadata

	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
}
