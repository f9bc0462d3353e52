package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves aged rows from the database to cold storage. Rows are
// deleted from the primary store only after the archive upload succeeded.
type Archiver interface {
	// ArchiveAllocationRuns archives runs executed before the cutoff and
	// returns the number of rows moved.
	ArchiveAllocationRuns(ctx context.Context, before time.Time) (int64, error)
	// ArchiveOrders archives orders created before the cutoff and returns
	// the number of rows moved.
	ArchiveOrders(ctx context.Context, before time.Time) (int64, error)
}
