// Package core exposes a Node-style file API (readFile, writeFile, mkdir,
// readdir, stat, ...) on top of any protocols.FileSystem host.
//
// Every operation validates its arguments, makes one host call and wraps a
// failure in a *PathError naming the operation and path. AppendFile is the
// only composed operation. Nothing is retried.
package core

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"hostfs/protocols"
)

// Stats is the per-call metadata snapshot returned by Stat.
type Stats struct {
	Name    string
	Size    int64
	ModTime time.Time
	dir     bool
}

func (s *Stats) IsFile() bool { return !s.dir }

func (s *Stats) IsDirectory() bool { return s.dir }

// FS is the file facade. It keeps no state of its own besides the optional
// Snapshot; the host owns storage, ordering and durability.
type FS struct {
	host     protocols.FileSystem
	encoding string
	strict   bool
	snapshot *Snapshot
	log      *slog.Logger
}

type Option func(*FS)

// WithEncoding sets the encoding used when a call passes "".
func WithEncoding(name string) Option {
	return func(f *FS) { f.encoding = name }
}

// WithStrictEncoding makes unknown encoding names fail with
// ErrUnsupportedEncoding instead of falling back to UTF-8.
func WithStrictEncoding(strict bool) Option {
	return func(f *FS) { f.strict = strict }
}

// WithSnapshot enables ExistsCached and ReadFileCached.
func WithSnapshot(s *Snapshot) Option {
	return func(f *FS) { f.snapshot = s }
}

func WithLogger(log *slog.Logger) Option {
	return func(f *FS) { f.log = log }
}

func New(host protocols.FileSystem, opts ...Option) *FS {
	f := &FS{
		host:     host,
		encoding: DefaultEncoding,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FS) Host() protocols.FileSystem { return f.host }

// Snapshot returns the configured cache, or nil.
func (f *FS) Snapshot() *Snapshot { return f.snapshot }

func (f *FS) codec(encoding string) (codec, error) {
	if encoding == "" {
		encoding = f.encoding
	}
	return resolveCodec(encoding, f.strict)
}

// ReadFile returns the contents of path decoded with encoding ("" for the default).
func (f *FS) ReadFile(ctx context.Context, path, encoding string) (string, error) {
	c, err := f.codec(encoding)
	if err != nil {
		return "", wrap(ErrFileRead, path, err)
	}
	data, err := f.host.ReadFile(ctx, path)
	if err != nil {
		f.forgetMissing(path, err)
		return "", wrap(ErrFileRead, path, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetData(path, data)
	}
	text, err := c.decode(data)
	if err != nil {
		return "", wrap(ErrFileRead, path, err)
	}
	return text, nil
}

// WriteFile creates or truncates path with data encoded with encoding.
func (f *FS) WriteFile(ctx context.Context, path, data, encoding string) error {
	c, err := f.codec(encoding)
	if err != nil {
		return wrap(ErrFileWrite, path, err)
	}
	b, err := c.encode(data)
	if err != nil {
		return wrap(ErrFileWrite, path, err)
	}
	if err := f.host.WriteFile(ctx, path, b); err != nil {
		f.invalidate(path)
		return wrap(ErrFileWrite, path, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetData(path, b)
	}
	return nil
}

// AppendFile adds data, encoded with the default encoding, to the end of
// path, creating the file if needed.
//
// Hosts implementing protocols.Appender append natively. On other hosts the
// file is read and rewritten whole: this assumes a single writer, and two
// overlapping appends to the same path may lose one of the updates.
func (f *FS) AppendFile(ctx context.Context, path, data string) error {
	c, err := f.codec("")
	if err != nil {
		return wrap(ErrFileAppend, path, err)
	}
	b, err := c.encode(data)
	if err != nil {
		return wrap(ErrFileAppend, path, err)
	}

	if ap, ok := f.host.(protocols.Appender); ok {
		// The host decides the final contents, so the snapshot cannot follow.
		f.invalidate(path)
		if err := ap.AppendFile(ctx, path, b); err != nil {
			return wrap(ErrFileAppend, path, err)
		}
		if f.snapshot != nil {
			f.snapshot.SetExists(path, true)
		}
		return nil
	}

	existing, err := f.host.ReadFile(ctx, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return wrap(ErrFileAppend, path, wrap(ErrFileRead, path, err))
	}
	combined := append(existing, b...)
	if err := f.host.WriteFile(ctx, path, combined); err != nil {
		f.invalidate(path)
		return wrap(ErrFileAppend, path, wrap(ErrFileWrite, path, err))
	}
	if f.snapshot != nil {
		f.snapshot.SetData(path, combined)
	}
	return nil
}

// Delete removes the file or directory at path.
func (f *FS) Delete(ctx context.Context, path string) error {
	f.invalidate(path)
	if err := f.host.Remove(ctx, path); err != nil {
		f.forgetMissing(path, err)
		return wrap(ErrFileDelete, path, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetExists(path, false)
	}
	return nil
}

// Exists reports whether path exists. Any host failure counts as false.
func (f *FS) Exists(ctx context.Context, path string) bool {
	_, err := f.host.Stat(ctx, path, false)
	if err != nil {
		f.log.Debug("exists check failed", "path", path, "error", err)
		f.forgetMissing(path, err)
		return false
	}
	if f.snapshot != nil {
		f.snapshot.SetExists(path, true)
	}
	return true
}

func (f *FS) Rename(ctx context.Context, oldPath, newPath string) error {
	f.invalidate(oldPath)
	f.invalidate(newPath)
	if err := f.host.Move(ctx, oldPath, newPath); err != nil {
		return wrap2(ErrFileRename, oldPath, newPath, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetExists(oldPath, false)
		f.snapshot.SetExists(newPath, true)
	}
	return nil
}

type mkdirOptions struct {
	recursive bool
}

type MkdirOption func(*mkdirOptions)

// Recursive controls whether missing parents are created. The default is true.
func Recursive(recursive bool) MkdirOption {
	return func(o *mkdirOptions) { o.recursive = recursive }
}

func (f *FS) Mkdir(ctx context.Context, path string, opts ...MkdirOption) error {
	o := mkdirOptions{recursive: true}
	for _, opt := range opts {
		opt(&o)
	}
	if err := f.host.MakeDir(ctx, path, o.recursive); err != nil {
		return wrap(ErrDirectoryCreate, path, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetExists(path, true)
	}
	return nil
}

// ReadDir returns the names of the entries in path, in host order.
func (f *FS) ReadDir(ctx context.Context, path string) ([]string, error) {
	names, err := f.host.List(ctx, path)
	if err != nil {
		return nil, wrap(ErrDirectoryRead, path, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (f *FS) Stat(ctx context.Context, path string) (*Stats, error) {
	entry, err := f.host.Stat(ctx, path, true)
	if err != nil {
		return nil, wrap(ErrStat, path, err)
	}
	return &Stats{
		Name:    entry.Name,
		Size:    entry.Size,
		ModTime: entry.ModTime,
		dir:     entry.IsDir,
	}, nil
}

// CopyFile duplicates srcPath to destPath and leaves the source untouched.
func (f *FS) CopyFile(ctx context.Context, srcPath, destPath string) error {
	f.invalidate(destPath)
	if err := f.host.Copy(ctx, srcPath, destPath); err != nil {
		return wrap2(ErrFileCopy, srcPath, destPath, err)
	}
	if f.snapshot != nil {
		f.snapshot.SetExists(destPath, true)
	}
	return nil
}

func (f *FS) invalidate(path string) {
	if f.snapshot != nil {
		f.snapshot.Invalidate(path)
	}
}

// forgetMissing records a definite absence; any other failure only drops
// what was known.
func (f *FS) forgetMissing(path string, err error) {
	if f.snapshot == nil {
		return
	}
	f.snapshot.Invalidate(path)
	if errors.Is(err, fs.ErrNotExist) {
		f.snapshot.SetExists(path, false)
	}
}
