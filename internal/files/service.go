package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"filegate/internal/activity"
	"filegate/internal/shared/metrics"
	"filegate/internal/shared/storage/object"
	"filegate/internal/shared/telemetry"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 200 * time.Millisecond
)

// Recorder receives an event for every successful upload and deletion.
type Recorder interface {
	Append(ctx context.Context, e activity.Event) error
}

// FileInfo describes a stored object without its content.
type FileInfo struct {
	Key            string
	Size           int64
	DeclaredLength int64
}

// Service stores per-owner files in an object store.
type Service struct {
	store       object.ObjectStore
	recorder    Recorder
	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxAttempts bounds how many times Save opens the source. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n >= 1 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the base of the linear backoff between Save attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithRecorder records upload and delete activity.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService constructs a Service over store.
func NewService(store object.ObjectStore, opts ...Option) *Service {
	s := &Service{
		store:       store,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes exactly contentLength bytes from src under ownerID/fileName,
// replacing any previous content. Failures reading src are retried with a
// fresh stream; store faults are not.
func (s *Service) Save(ctx context.Context, ownerID, fileName string, src Source, contentLength int64) (err error) {
	defer s.observe("save", time.Now(), &err)

	key, err := ObjectKey(ownerID, fileName)
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("%w: %s: no content", ErrWriteFailure, key)
	}
	if contentLength < 0 {
		return fmt.Errorf("%w: %s: negative content length %d", ErrWriteFailure, key, contentLength)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * s.retryDelay
			telemetry.Warn("files.save.retry", map[string]any{
				"key":     key,
				"attempt": attempt,
				"wait_ms": wait.Milliseconds(),
				"err":     lastErr,
			})
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("%w: %s: %w", ErrWriteFailure, key, ctx.Err())
			}
		}

		metrics.IncUploadAttempt()
		sourceErr, storeErr := s.putOnce(ctx, key, src, contentLength)
		if sourceErr == nil && storeErr == nil {
			s.record(ctx, activity.ActionUpload, ownerID, fileName, key, contentLength)
			return nil
		}
		if sourceErr == nil {
			return fmt.Errorf("%w: put %s: %w", ErrStoreFailure, key, storeErr)
		}
		lastErr = sourceErr
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrWriteFailure, key, s.maxAttempts, lastErr)
}

// putOnce runs a single upload attempt and reports whether it failed on the
// source side or the store side.
func (s *Service) putOnce(ctx context.Context, key string, src Source, size int64) (sourceErr, storeErr error) {
	rc, err := src.Open()
	if err != nil {
		return fmt.Errorf("open source: %w", err), nil
	}
	defer rc.Close()

	body, tracked := newPutBody(rc, size)
	meta := map[string]string{object.MetaContentLength: strconv.FormatInt(size, 10)}
	if err := s.store.Put(ctx, key, body, size, meta); err != nil {
		if tracked.err != nil {
			return fmt.Errorf("read source: %w", tracked.err), nil
		}
		return nil, err
	}
	return nil, nil
}

// Load returns the full content of ownerID/fileName.
func (s *Service) Load(ctx context.Context, ownerID, fileName string) (data []byte, err error) {
	defer s.observe("load", time.Now(), &err)

	key, err := ObjectKey(ownerID, fileName)
	if err != nil {
		return nil, err
	}
	head, err := s.probe(ctx, key)
	if err != nil {
		return nil, err
	}
	if !head.Found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	rc, size, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: get %s: %w", ErrStoreFailure, key, err)
	}
	defer rc.Close()

	data, err = io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadFailure, key, err)
	}
	expected := size
	if expected < 0 {
		expected = head.DeclaredLength()
	}
	if int64(len(data)) < expected {
		return nil, fmt.Errorf("%w: %s: got %d of %d bytes: %w", ErrReadFailure, key, len(data), expected, io.ErrUnexpectedEOF)
	}
	return data, nil
}

// Remove deletes ownerID/fileName. It reports false when there was nothing to delete.
func (s *Service) Remove(ctx context.Context, ownerID, fileName string) (deleted bool, err error) {
	defer s.observe("remove", time.Now(), &err)

	key, err := ObjectKey(ownerID, fileName)
	if err != nil {
		return false, err
	}
	ok, err := s.exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("%w: delete %s: %w", ErrStoreFailure, key, err)
	}
	s.record(ctx, activity.ActionDelete, ownerID, fileName, key, 0)
	return true, nil
}

// List returns every key in the owner's namespace in lexicographic order.
// Keys are full owner/file keys; an owner with no files gets an empty slice.
func (s *Service) List(ctx context.Context, ownerID string) (keys []string, err error) {
	defer s.observe("list", time.Now(), &err)

	prefix, err := ownerPrefix(ownerID)
	if err != nil {
		return nil, err
	}
	keys, err = s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrStoreFailure, prefix, err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Stat reports the size of ownerID/fileName without reading it.
func (s *Service) Stat(ctx context.Context, ownerID, fileName string) (info FileInfo, err error) {
	defer s.observe("stat", time.Now(), &err)

	key, err := ObjectKey(ownerID, fileName)
	if err != nil {
		return FileInfo{}, err
	}
	head, err := s.probe(ctx, key)
	if err != nil {
		return FileInfo{}, err
	}
	if !head.Found {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return FileInfo{Key: key, Size: head.Size, DeclaredLength: head.DeclaredLength()}, nil
}

func (s *Service) exists(ctx context.Context, key string) (bool, error) {
	head, err := s.probe(ctx, key)
	if err != nil {
		return false, err
	}
	return head.Found, nil
}

func (s *Service) probe(ctx context.Context, key string) (object.HeadResult, error) {
	head, err := s.store.Head(ctx, key)
	if err != nil {
		return object.HeadResult{}, fmt.Errorf("%w: head %s: %w", ErrStoreFailure, key, err)
	}
	return head, nil
}

func (s *Service) record(ctx context.Context, action activity.Action, ownerID, fileName, key string, size int64) {
	if s.recorder == nil {
		return
	}
	e := activity.Event{
		ID:        uuid.NewString(),
		UserName:  ownerID,
		FileName:  fileName,
		ObjectKey: key,
		Action:    action,
		SizeBytes: size,
		CreatedAt: s.now().UTC(),
	}
	if err := s.recorder.Append(ctx, e); err != nil {
		telemetry.Warn("files.activity.record_failed", map[string]any{
			"key":    key,
			"action": string(action),
			"err":    err,
		})
	}
}

func (s *Service) observe(op string, start time.Time, errp *error) {
	outcome := outcomeOf(*errp)
	metrics.ObserveFileOp(op, outcome, time.Since(start))
	if outcome == "error" {
		telemetry.Error("files."+op+".failed", map[string]any{
			"err":        *errp,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidKey):
		return "invalid"
	default:
		return "error"
	}
}
