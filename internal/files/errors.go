package files

import "errors"

var (
	// ErrNotFound means the requested object does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrStoreFailure wraps any object store fault other than a missing key.
	ErrStoreFailure = errors.New("object store failure")
	// ErrWriteFailure means the upload content could not be read in full.
	ErrWriteFailure = errors.New("file write failure")
	// ErrReadFailure means a stored object could not be read back in full.
	ErrReadFailure = errors.New("file read failure")
	// ErrInvalidKey means an owner or file name cannot form a safe object key.
	ErrInvalidKey = errors.New("invalid object key")
)
