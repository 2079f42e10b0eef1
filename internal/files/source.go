package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// Source is upload content that can be opened once per attempt.
type Source interface {
	Open() (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open() (io.ReadCloser, error) { return f() }

// BytesSource serves an in-memory payload. Opened streams can seek.
func BytesSource(b []byte) Source {
	return SourceFunc(func() (io.ReadCloser, error) {
		return bytesReadCloser{bytes.NewReader(b)}, nil
	})
}

type bytesReadCloser struct {
	*bytes.Reader
}

func (bytesReadCloser) Close() error { return nil }

// MultipartSource serves a file part from a parsed multipart form.
func MultipartSource(fh *multipart.FileHeader) Source {
	return SourceFunc(func() (io.ReadCloser, error) {
		return fh.Open()
	})
}

// sourceReader yields at most remaining bytes and remembers the first read
// failure, so a failed put can be told apart from a failed source.
type sourceReader struct {
	r         io.Reader
	size      int64
	remaining int64
	err       error
}

// newPutBody wraps an opened source for a put of size bytes. The result is an
// io.ReadSeeker when the stream can seek, which S3 needs to checksum a body
// sent over plain HTTP.
func newPutBody(r io.Reader, size int64) (io.Reader, *sourceReader) {
	sr := &sourceReader{r: r, size: size, remaining: size}
	if seeker, ok := r.(io.Seeker); ok {
		return &seekingSourceReader{sourceReader: sr, seeker: seeker}, sr
	}
	return sr, sr
}

// seekingSourceReader seeks within the first size bytes of the stream.
type seekingSourceReader struct {
	*sourceReader
	seeker io.Seeker
}

func (s *seekingSourceReader) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.size - s.remaining + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if target < 0 || target > s.size {
		return 0, fmt.Errorf("seek: offset %d outside [0, %d]", target, s.size)
	}
	if _, err := s.seeker.Seek(target, io.SeekStart); err != nil {
		if s.err == nil {
			s.err = err
		}
		return 0, err
	}
	s.remaining = s.size - target
	return target, nil
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if s.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > s.remaining {
		p = p[:s.remaining]
	}
	n, err := s.r.Read(p)
	s.remaining -= int64(n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		if s.remaining > 0 {
			s.err = io.ErrUnexpectedEOF
			return n, io.ErrUnexpectedEOF
		}
		return n, io.EOF
	default:
		if s.err == nil {
			s.err = err
		}
		return n, err
	}
}
