// Package s3 keeps export objects in an S3-compatible bucket through minio-go.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/docmesh/docmesh/internal/storage"
)

type Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// bucket is one bucket of an S3 API, bound by name.
type bucket interface {
	put(ctx context.Context, name string, body io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	get(ctx context.Context, name string) (io.ReadCloser, error)
	stat(ctx context.Context, name string) (minio.ObjectInfo, error)
	remove(ctx context.Context, name string) error
	exists(ctx context.Context) (bool, error)
	create(ctx context.Context, region string) error
}

type Store struct {
	bucket bucket
	name   string
	prefix string
}

var _ storage.ObjectStore = (*Store)(nil)

func New(ctx context.Context, cfg Config) (*Store, error) {
	name := strings.TrimSpace(cfg.Bucket)
	if name == "" {
		return nil, errors.New("s3 bucket is required")
	}
	host, secure, err := endpointHost(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	store := newStore(name, cfg.Prefix, &minioBucket{client: client, name: name})
	if cfg.AutoCreateBucket {
		if err := store.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func newStore(name, prefix string, b bucket) *Store {
	return &Store{
		bucket: b,
		name:   name,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}
}

func (s *Store) Bucket() string {
	return s.name
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	name, err := s.objectName(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	uploaded, err := s.bucket.put(ctx, name, body, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("put object %q: %w", name, translateError(err))
	}
	return storage.ObjectInfo{
		Key:          key,
		Size:         uploaded.Size,
		ETag:         uploaded.ETag,
		ContentType:  opts.ContentType,
		LastModified: uploaded.LastModified,
		Metadata:     opts.Metadata,
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	name, err := s.objectName(key)
	if err != nil {
		return nil, err
	}
	reader, err := s.bucket.get(ctx, name)
	if err != nil {
		return nil, wrapObjectError("get", name, err)
	}
	return reader, nil
}

func (s *Store) Stat(ctx context.Context, key string) (storage.ObjectInfo, error) {
	name, err := s.objectName(key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := s.bucket.stat(ctx, name)
	if err != nil {
		return storage.ObjectInfo{}, wrapObjectError("stat", name, err)
	}
	metadata := make(map[string]string, len(info.UserMetadata))
	for k, v := range info.UserMetadata {
		metadata[strings.ToLower(k)] = v
	}
	return storage.ObjectInfo{
		Key:          key,
		Size:         info.Size,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     metadata,
	}, nil
}

// Delete treats a missing object as already deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	name, err := s.objectName(key)
	if err != nil {
		return err
	}
	err = translateError(s.bucket.remove(ctx, name))
	if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
		return nil
	}
	return fmt.Errorf("delete object %q: %w", name, err)
}

func (s *Store) Ping(ctx context.Context) error {
	exists, err := s.bucket.exists(ctx)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.name, translateError(err))
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", s.name)
	}
	return nil
}

func (s *Store) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.bucket.exists(ctx)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.name, translateError(err))
	}
	if exists {
		return nil
	}
	if err := s.bucket.create(ctx, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.name, translateError(err))
	}
	return nil
}

// objectName maps a store key to the bucket object name under the prefix.
// Empty, "." and ".." segments are rejected.
func (s *Store) objectName(key string) (string, error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("object key is required")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("invalid object key: %q", key)
		}
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + "/" + key, nil
}

// endpointHost accepts a bare host:port or a URL; a URL scheme overrides
// useSSL.
func endpointHost(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, errors.New("s3 endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse s3 endpoint: %w", err)
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("s3 endpoint %q has no host", raw)
	}
	switch parsed.Scheme {
	case "https":
		return parsed.Host, true, nil
	case "http":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported s3 endpoint scheme %q", parsed.Scheme)
	}
}

func wrapObjectError(op, name string, err error) error {
	err = translateError(err)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return fmt.Errorf("%s object %q: %w", op, name, err)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return storage.ErrObjectNotFound
	}
	return err
}

type minioBucket struct {
	client *minio.Client
	name   string
}

func (m *minioBucket) put(ctx context.Context, name string, body io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, m.name, name, body, size, opts)
}

// get stats the object first so a missing key fails here rather than on the
// first read.
func (m *minioBucket) get(ctx context.Context, name string) (io.ReadCloser, error) {
	object, err := m.client.GetObject(ctx, m.name, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		return nil, err
	}
	return object, nil
}

func (m *minioBucket) stat(ctx context.Context, name string) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, m.name, name, minio.StatObjectOptions{})
}

func (m *minioBucket) remove(ctx context.Context, name string) error {
	return m.client.RemoveObject(ctx, m.name, name, minio.RemoveObjectOptions{})
}

func (m *minioBucket) exists(ctx context.Context) (bool, error) {
	return m.client.BucketExists(ctx, m.name)
}

func (m *minioBucket) create(ctx context.Context, region string) error {
	return m.client.MakeBucket(ctx, m.name, minio.MakeBucketOptions{Region: region})
}
