package files

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"filegate/internal/shared/storage/object"
)

// memStore is an in-memory ObjectStore with per-call fault hooks.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string

	putErr    func(key string) error
	getErr    error
	getBody   func(data []byte) io.ReadCloser
	getSize   func(data []byte) int64
	headErr   error
	deleteErr error
	listErr   error

	puts         int
	deletes      int
	seekableBody []bool
}

func newMemStore() *memStore {
	return &memStore{
		objects: make(map[string][]byte),
		meta:    make(map[string]map[string]string),
	}
}

func (m *memStore) Put(ctx context.Context, key string, body io.Reader, size int64, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, seekable := body.(io.Seeker)
	m.mu.Lock()
	m.puts++
	m.seekableBody = append(m.seekableBody, seekable)
	hook := m.putErr
	m.mu.Unlock()
	if hook != nil {
		if err := hook(key); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, body, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if n != size {
		return io.ErrUnexpectedEOF
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = buf.Bytes()
	m.meta[key] = metadata
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, 0, m.getErr
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, 0, object.ErrNotFound
	}
	size := int64(len(data))
	if m.getSize != nil {
		size = m.getSize(data)
	}
	if m.getBody != nil {
		return m.getBody(data), size, nil
	}
	return io.NopCloser(bytes.NewReader(data)), size, nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, key)
	delete(m.meta, key)
	return nil
}

func (m *memStore) Head(ctx context.Context, key string) (object.HeadResult, error) {
	if err := ctx.Err(); err != nil {
		return object.HeadResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.headErr != nil {
		return object.HeadResult{}, m.headErr
	}
	data, ok := m.objects[key]
	if !ok {
		return object.HeadResult{Found: false}, nil
	}
	meta := map[string]string{object.MetaContentLength: strconv.Itoa(len(data))}
	for k, v := range m.meta[key] {
		meta[k] = v
	}
	return object.HeadResult{Found: true, Size: int64(len(data)), Metadata: meta}, nil
}

func (m *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// rewindingStore drains and rewinds seekable bodies before storing them, the
// way the S3 client does to checksum a body sent without TLS.
type rewindingStore struct {
	*memStore
	drained int64
}

func (r *rewindingStore) Put(ctx context.Context, key string, body io.Reader, size int64, metadata map[string]string) error {
	seeker, ok := body.(io.Seeker)
	if !ok {
		return errors.New("unseekable stream is not supported without TLS")
	}
	start, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if end != size {
		return errors.New("seek end does not match declared length")
	}
	if _, err := seeker.Seek(start, io.SeekStart); err != nil {
		return err
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	r.drained = n
	if _, err := seeker.Seek(start, io.SeekStart); err != nil {
		return err
	}
	return r.memStore.Put(ctx, key, body, size, metadata)
}

// flakySource fails the first failures opens or reads, then serves data.
type flakySource struct {
	data     []byte
	failures int
	failOpen bool
	short    bool
	opens    int
	closes   int
}

func (f *flakySource) Open() (io.ReadCloser, error) {
	f.opens++
	if f.opens <= f.failures {
		if f.failOpen {
			return nil, errors.New("source unavailable")
		}
		if f.short {
			return &countingCloser{Reader: bytes.NewReader(f.data[:len(f.data)/2]), src: f}, nil
		}
		return &countingCloser{Reader: io.MultiReader(bytes.NewReader(f.data[:1]), errReader{}), src: f}, nil
	}
	return &countingCloser{Reader: bytes.NewReader(f.data), src: f}, nil
}

type countingCloser struct {
	io.Reader
	src *flakySource
}

func (c *countingCloser) Close() error {
	c.src.closes++
	return nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }
