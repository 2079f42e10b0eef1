package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"filegate/internal/shared/storage/object"
)

const (
	defaultDeleteTimeout   = 30 * time.Second
	defaultListPageTimeout = 30 * time.Second
)

// Options configures the S3-backed store.
type Options struct {
	Region          string
	Bucket          string
	Prefix          string
	KMSKeyID        string
	Endpoint        string
	ForcePathStyle  bool
	AccessKeyID     string
	SecretAccessKey string
	DeleteTimeout   time.Duration
	ListPageTimeout time.Duration
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type listObjectsV2Paginator interface {
	HasMorePages() bool
	NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Store implements ObjectStore using Amazon S3 or any S3-compatible endpoint.
type Store struct {
	api                       s3API
	newListObjectsV2Paginator func(s3.ListObjectsV2APIClient, *s3.ListObjectsV2Input) listObjectsV2Paginator
	bucket                    string
	prefix                    string
	kmsKeyID                  string
	deleteTimeout             time.Duration
	listPageTimeout           time.Duration
}

// New creates a new S3-backed object store.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" {
		if err := validateEndpoint(endpoint); err != nil {
			return nil, err
		}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	deleteTimeout := opts.DeleteTimeout
	if deleteTimeout <= 0 {
		deleteTimeout = defaultDeleteTimeout
	}
	listPageTimeout := opts.ListPageTimeout
	if listPageTimeout <= 0 {
		listPageTimeout = defaultListPageTimeout
	}

	return &Store{
		api:                       client,
		newListObjectsV2Paginator: newAWSListObjectsV2Paginator,
		bucket:                    opts.Bucket,
		prefix:                    normalizePrefix(opts.Prefix),
		kmsKeyID:                  strings.TrimSpace(opts.KMSKeyID),
		deleteTimeout:             deleteTimeout,
		listPageTimeout:           listPageTimeout,
	}, nil
}

// Put uploads size bytes from body to key, tagging the object with metadata.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, metadata map[string]string) error {
	if s.api == nil {
		return errors.New("s3 api client is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	objectKey := applyPrefix(s.prefix, key)
	// Without TLS the SDK must seek the body to compute its checksum header.
	if _, ok := body.(io.ReadSeeker); !ok {
		buffered, err := bufferBody(body, size)
		if err != nil {
			return fmt.Errorf("s3 put object bucket=%s key=%s: read body: %w", s.bucket, objectKey, err)
		}
		body = buffered
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      metadata,
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

func bufferBody(body io.Reader, size int64) (*bytes.Reader, error) {
	data, err := io.ReadAll(io.LimitReader(body, size))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < size {
		return nil, io.ErrUnexpectedEOF
	}
	return bytes.NewReader(data), nil
}

// Get downloads a stored object for reading.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	if s.api == nil {
		return nil, 0, errors.New("s3 api client is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	objectKey := applyPrefix(s.prefix, key)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, 0, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, object.ErrNotFound)
		}
		return nil, 0, fmt.Errorf("s3 get object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// Delete removes the object at key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.api == nil {
		return errors.New("s3 api client is not configured")
	}

	objectKey := applyPrefix(s.prefix, key)
	deleteCtx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	if _, err := s.api.DeleteObject(deleteCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}); err != nil {
		return fmt.Errorf("s3 delete object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return nil
}

// Head probes key without transferring the body.
func (s *Store) Head(ctx context.Context, key string) (object.HeadResult, error) {
	if s.api == nil {
		return object.HeadResult{}, errors.New("s3 api client is not configured")
	}

	objectKey := applyPrefix(s.prefix, key)
	out, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return object.HeadResult{Found: false}, nil
		}
		return object.HeadResult{}, fmt.Errorf("s3 head object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}

	res := object.HeadResult{Found: true, Metadata: out.Metadata}
	if out.ContentLength != nil {
		res.Size = *out.ContentLength
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	if _, ok := res.Metadata[object.MetaContentLength]; !ok {
		res.Metadata[object.MetaContentLength] = strconv.FormatInt(res.Size, 10)
	}
	return res, nil
}

// List pages through every key under prefix and returns them without the store root prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if s.api == nil {
		return nil, errors.New("s3 api client is not configured")
	}
	if s.newListObjectsV2Paginator == nil {
		return nil, errors.New("s3 paginator factory is not configured")
	}

	fullPrefix := applyPrefix(s.prefix, prefix)
	p := s.newListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})
	if p == nil {
		return nil, errors.New("s3 paginator is not configured")
	}

	rootPrefix := ""
	if s.prefix != "" {
		rootPrefix = s.prefix + "/"
	}

	keys := make([]string, 0)
	for p.HasMorePages() {
		page, err := s.nextPage(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects bucket=%s prefix=%s: %w", s.bucket, fullPrefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := strings.TrimPrefix(*obj.Key, rootPrefix)
			if key == "" || !strings.HasPrefix(key, prefix) {
				continue
			}
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (s *Store) nextPage(ctx context.Context, p listObjectsV2Paginator) (*s3.ListObjectsV2Output, error) {
	pageCtx, cancel := context.WithTimeout(ctx, s.listPageTimeout)
	defer cancel()
	return p.NextPage(pageCtx)
}

type awsListObjectsV2Paginator struct {
	inner *s3.ListObjectsV2Paginator
}

func newAWSListObjectsV2Paginator(client s3.ListObjectsV2APIClient, input *s3.ListObjectsV2Input) listObjectsV2Paginator {
	return &awsListObjectsV2Paginator{inner: s3.NewListObjectsV2Paginator(client, input)}
}

func (p *awsListObjectsV2Paginator) HasMorePages() bool {
	return p.inner != nil && p.inner.HasMorePages()
}

func (p *awsListObjectsV2Paginator) NextPage(ctx context.Context, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if p.inner == nil {
		return nil, errors.New("s3 paginator is not configured")
	}
	return p.inner.NextPage(ctx, optFns...)
}

// isNotFound reports whether err means the key is absent, as opposed to any
// other fault (permissions, throttling, missing bucket, network).
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		case "NoSuchBucket":
			return false
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return fmt.Errorf("s3 endpoint must be a valid http(s) URL: %q", endpoint)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("s3 endpoint must use http or https: %q", endpoint)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.ObjectStore = (*Store)(nil)
