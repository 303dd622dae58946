package core

import (
	"context"
	"io"
)

// Archiver stores generated files such as CSV reports.
type Archiver interface {
	// Put stores body under key and returns where it ended up (URL or path).
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}
