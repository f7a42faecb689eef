package protocols

import (
	"context"
	"path"
	"strings"
	"time"
)

type FileEntry struct {
	Name    string
	Size    int64 // only filled when requested with withSize
	ModTime time.Time
	IsDir   bool
	Path    string // 相对路径
}

// FileSystem is the host file-system service the core facade delegates to.
// Paths are slash separated and relative to the backend root. Missing paths
// must produce errors satisfying errors.Is(err, fs.ErrNotExist).
type FileSystem interface {
	Init(ctx context.Context) error
	Close() error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile creates or truncates path. The parent directory must exist.
	WriteFile(ctx context.Context, path string, data []byte) error
	// Remove deletes a file, or a directory together with its contents.
	Remove(ctx context.Context, path string) error
	Move(ctx context.Context, from, to string) error
	Copy(ctx context.Context, src, dst string) error
	MakeDir(ctx context.Context, path string, intermediates bool) error
	// List returns the names of the direct children of a directory, in host order.
	List(ctx context.Context, path string) ([]string, error)
	Stat(ctx context.Context, path string, withSize bool) (*FileEntry, error)
}

// clean makes p relative to the backend root. Leading slashes and ".."
// segments cannot climb above the root.
func clean(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Appender is implemented by hosts with a native append primitive.
// AppendFile creates path when it does not exist.
type Appender interface {
	AppendFile(ctx context.Context, path string, data []byte) error
}
