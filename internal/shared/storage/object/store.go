package object

import (
	"context"
	"errors"
	"io"
	"strconv"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("object not found")

// MetaContentLength is the metadata key carrying an object's declared byte length.
const MetaContentLength = "content-length"

// HeadResult is the outcome of a metadata-only probe. A missing key is reported
// as Found == false with a nil error; any other fault is returned as an error.
type HeadResult struct {
	Found    bool
	Size     int64
	Metadata map[string]string
}

// DeclaredLength returns the content-length recorded at upload time, falling
// back to the stored size when the metadata is absent or malformed.
func (h HeadResult) DeclaredLength() int64 {
	if raw, ok := h.Metadata[MetaContentLength]; ok {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	return h.Size
}

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, metadata map[string]string) error
	// Get returns the object body and its size, or -1 when the size is unknown.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
	Head(ctx context.Context, key string) (HeadResult, error)
	// List returns every key beginning with prefix in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)
}
