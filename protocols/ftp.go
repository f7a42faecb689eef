package protocols

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/textproto"
	"path"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPFileSystem talks to an FTP server over a single control connection,
// so every call is serialized.
type FTPFileSystem struct {
	Host     string
	Port     int
	User     string
	Password string
	RootPath string
	conn     *ftp.ServerConn
	mu       sync.Mutex
}

func (f *FTPFileSystem) Init(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", f.Host, f.Port)
	c, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second), ftp.DialWithContext(ctx))
	if err != nil {
		return err
	}

	if err := c.Login(f.User, f.Password); err != nil {
		c.Quit()
		return err
	}
	f.conn = c
	return nil
}

func (f *FTPFileSystem) Close() error {
	if f.conn != nil {
		return f.conn.Quit()
	}
	return nil
}

func (f *FTPFileSystem) full(relPath string) string {
	return path.Join(f.RootPath, clean(relPath))
}

// notExist maps the 550 reply to fs.ErrNotExist so callers can test for it.
func notExist(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable {
		return fmt.Errorf("%s: %w", tpErr.Msg, fs.ErrNotExist)
	}
	return err
}

func (f *FTPFileSystem) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.retr(f.full(relPath))
}

func (f *FTPFileSystem) retr(fullPath string) ([]byte, error) {
	resp, err := f.conn.Retr(fullPath)
	if err != nil {
		return nil, notExist(err)
	}
	data, err := io.ReadAll(resp)
	if err != nil {
		resp.Close()
		return nil, err
	}
	return data, resp.Close()
}

func (f *FTPFileSystem) WriteFile(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return notExist(f.conn.Stor(f.full(relPath), bytes.NewReader(data)))
}

func (f *FTPFileSystem) AppendFile(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return notExist(f.conn.Append(f.full(relPath), bytes.NewReader(data)))
}

func (f *FTPFileSystem) Remove(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, err := f.stat(relPath)
	if err != nil {
		return err
	}
	fullPath := f.full(relPath)
	if entry.IsDir {
		return f.conn.RemoveDirRecur(fullPath)
	}
	return notExist(f.conn.Delete(fullPath))
}

func (f *FTPFileSystem) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return notExist(f.conn.Rename(f.full(from), f.full(to)))
}

// Copy downloads then uploads; FTP has no server-side copy and the data
// connection cannot carry both transfers at once.
func (f *FTPFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.retr(f.full(src))
	if err != nil {
		return err
	}
	return notExist(f.conn.Stor(f.full(dst), bytes.NewReader(data)))
}

func (f *FTPFileSystem) MakeDir(ctx context.Context, relPath string, intermediates bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	fullPath := f.full(relPath)
	if !intermediates {
		return notExist(f.conn.MakeDir(fullPath))
	}

	// FTP doesn't have MkdirAll, create every segment from the root down
	dirs := []string{}
	curr := fullPath
	for curr != "." && curr != "/" && curr != "" {
		dirs = append(dirs, curr)
		curr = path.Dir(curr)
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		f.conn.MakeDir(dirs[i]) // Ignore error as it might already exist
	}

	entry, err := f.stat(relPath)
	if err != nil {
		return err
	}
	if !entry.IsDir {
		return fmt.Errorf("%s exists and is not a directory", relPath)
	}
	return nil
}

func (f *FTPFileSystem) List(ctx context.Context, relPath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.conn.List(f.full(relPath))
	if err != nil {
		return nil, notExist(err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		names = append(names, entry.Name)
	}
	// Some servers answer LIST on a missing directory with an empty listing
	if len(names) == 0 {
		entry, err := f.stat(relPath)
		if err != nil {
			return nil, err
		}
		if !entry.IsDir {
			return nil, fmt.Errorf("%s is not a directory", relPath)
		}
	}
	return names, nil
}

func (f *FTPFileSystem) Stat(ctx context.Context, relPath string, withSize bool) (*FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, err := f.stat(relPath)
	if err != nil {
		return nil, err
	}
	if !withSize {
		entry.Size = 0
	}
	return entry, nil
}

func (f *FTPFileSystem) stat(relPath string) (*FileEntry, error) {
	fullPath := f.full(relPath)
	if fullPath == "/" || fullPath == "." || fullPath == "" {
		return &FileEntry{Name: fullPath, IsDir: true, Path: relPath}, nil
	}

	// FTP LIST is often the only way to get stat
	parent := path.Dir(fullPath)
	name := path.Base(fullPath)

	entries, err := f.conn.List(parent)
	if err != nil {
		return nil, notExist(err)
	}

	for _, entry := range entries {
		if entry.Name == name {
			return &FileEntry{
				Name:    entry.Name,
				Size:    int64(entry.Size),
				ModTime: entry.Time,
				IsDir:   entry.Type == ftp.EntryTypeFolder,
				Path:    relPath,
			}, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s: %w", relPath, fs.ErrNotExist)
}
