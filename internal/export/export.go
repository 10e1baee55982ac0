// Package export stores finished report workbooks in a sink: an
// external report drive over HTTP, or a directory on local disk.
package export

import (
	"context"
	"errors"
)

// ErrAuthRequired reports that the external sink rejected our
// credentials. Callers treat it like any other sink failure and fall
// back to local storage, but surface it so the operator knows
// re-authorization is needed.
var ErrAuthRequired = errors.New("export sink authorization required")

type Sink interface {
	Name() string
	// EnsureFolder walks the nested folder path, creating missing
	// segments, and returns an opaque parent reference for Upload.
	EnsureFolder(ctx context.Context, path []string) (string, error)
	// Upload stores data under name inside parent and returns the
	// final location of the stored file.
	Upload(ctx context.Context, parent, name string, data []byte) (string, error)
}
