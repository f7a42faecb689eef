package protocols

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOFileSystem maps files onto objects of a MinIO or S3-compatible bucket.
// Directories are key prefixes; MakeDir writes an empty "<dir>/" marker so
// that empty directories survive.
type MinIOFileSystem struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	RootPath  string
	client    *minio.Client
}

// NewMinIOFromClient wraps an existing client. Init only ensures the bucket.
func NewMinIOFromClient(client *minio.Client, bucket, rootPath string) *MinIOFileSystem {
	return &MinIOFileSystem{Bucket: bucket, RootPath: rootPath, client: client}
}

func (m *MinIOFileSystem) Init(ctx context.Context) error {
	if m.client == nil {
		client, err := minio.New(m.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(m.AccessKey, m.SecretKey, ""),
			Secure: m.Secure,
		})
		if err != nil {
			return err
		}
		m.client = client
	}

	exists, err := m.client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return m.client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (m *MinIOFileSystem) Close() error {
	return nil
}

func (m *MinIOFileSystem) key(relPath string) string {
	k := strings.TrimPrefix(path.Join(m.RootPath, clean(relPath)), "/")
	if k == "." {
		return ""
	}
	return k
}

func objectNotExist(err error, key string) error {
	code := minio.ToErrorResponse(err).Code
	if code == "NoSuchKey" || code == "NotFound" {
		return fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return err
}

// isDir reports whether any object lives under the key prefix.
func (m *MinIOFileSystem) isDir(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return true, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:  key + "/",
		MaxKeys: 1,
	}) {
		if obj.Err != nil {
			return false, obj.Err
		}
		return true, nil
	}
	return false, nil
}

func (m *MinIOFileSystem) requireParent(ctx context.Context, key string) error {
	parent := path.Dir(key)
	if parent == "." {
		return nil
	}
	ok, err := m.isDir(ctx, parent)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", parent, fs.ErrNotExist)
	}
	return nil
}

func (m *MinIOFileSystem) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	key := m.key(relPath)
	obj, err := m.client.GetObject(ctx, m.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, objectNotExist(err, key)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, objectNotExist(err, key)
	}
	return data, nil
}

func (m *MinIOFileSystem) WriteFile(ctx context.Context, relPath string, data []byte) error {
	key := m.key(relPath)
	if err := m.requireParent(ctx, key); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

func (m *MinIOFileSystem) Remove(ctx context.Context, relPath string) error {
	key := m.key(relPath)
	if _, err := m.client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{}); err == nil {
		return m.client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{})
	}

	ok, err := m.isDir(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}

	for obj := range m.client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    key + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := m.client.RemoveObject(ctx, m.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// Move is a server-side copy followed by a delete. A directory is moved
// object by object, so a failure part way leaves both prefixes populated.
func (m *MinIOFileSystem) Move(ctx context.Context, from, to string) error {
	fromKey, toKey := m.key(from), m.key(to)
	if _, err := m.client.StatObject(ctx, m.Bucket, fromKey, minio.StatObjectOptions{}); err == nil {
		if err := m.Copy(ctx, from, to); err != nil {
			return err
		}
		return m.client.RemoveObject(ctx, m.Bucket, fromKey, minio.RemoveObjectOptions{})
	}

	ok, err := m.isDir(ctx, fromKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", fromKey, fs.ErrNotExist)
	}
	if fromKey == "" || toKey == fromKey || strings.HasPrefix(toKey, fromKey+"/") {
		return fmt.Errorf("move %s into itself: %w", fromKey, fs.ErrInvalid)
	}
	if err := m.requireParent(ctx, toKey); err != nil {
		return err
	}

	for obj := range m.client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{
		Prefix:    fromKey + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return obj.Err
		}
		dst := toKey + strings.TrimPrefix(obj.Key, fromKey)
		if _, err := m.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: m.Bucket, Object: dst},
			minio.CopySrcOptions{Bucket: m.Bucket, Object: obj.Key},
		); err != nil {
			return err
		}
		if err := m.client.RemoveObject(ctx, m.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (m *MinIOFileSystem) Copy(ctx context.Context, src, dst string) error {
	srcKey, dstKey := m.key(src), m.key(dst)
	if err := m.requireParent(ctx, dstKey); err != nil {
		return err
	}
	_, err := m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: m.Bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: m.Bucket, Object: srcKey},
	)
	return objectNotExist(err, srcKey)
}

func (m *MinIOFileSystem) MakeDir(ctx context.Context, relPath string, intermediates bool) error {
	key := m.key(relPath)
	if key == "" {
		return nil
	}
	ok, err := m.isDir(ctx, key)
	if err != nil {
		return err
	}
	if ok {
		if intermediates {
			return nil
		}
		return fmt.Errorf("%s: %w", key, fs.ErrExist)
	}
	if !intermediates {
		if err := m.requireParent(ctx, key); err != nil {
			return err
		}
	}
	_, err = m.client.PutObject(ctx, m.Bucket, key+"/", bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	return err
}

func (m *MinIOFileSystem) List(ctx context.Context, relPath string) ([]string, error) {
	key := m.key(relPath)
	ok, err := m.isDir(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}

	prefix := ""
	if key != "" {
		prefix = key + "/"
	}
	var names []string
	for obj := range m.client.ListObjects(ctx, m.Bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (m *MinIOFileSystem) Stat(ctx context.Context, relPath string, withSize bool) (*FileEntry, error) {
	key := m.key(relPath)
	if key == "" {
		return &FileEntry{Name: m.Bucket, IsDir: true, Path: relPath}, nil
	}
	info, err := m.client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{})
	if err == nil {
		entry := &FileEntry{
			Name:    path.Base(key),
			ModTime: info.LastModified,
			Path:    relPath,
		}
		if withSize {
			entry.Size = info.Size
		}
		return entry, nil
	}
	if err := objectNotExist(err, key); !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	ok, err := m.isDir(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
	}
	return &FileEntry{Name: path.Base(key), IsDir: true, Path: relPath}, nil
}
