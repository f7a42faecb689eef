package protocols

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalFileSystem struct {
	RootPath string
}

func (l *LocalFileSystem) Init(_ context.Context) error {
	return os.MkdirAll(l.RootPath, 0755)
}

func (l *LocalFileSystem) Close() error {
	return nil
}

func (l *LocalFileSystem) abs(path string) string {
	return filepath.Join(l.RootPath, filepath.FromSlash(clean(path)))
}

func (l *LocalFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(l.abs(path))
}

func (l *LocalFileSystem) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(l.abs(path), data, 0644)
}

func (l *LocalFileSystem) AppendFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.OpenFile(l.abs(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *LocalFileSystem) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath := l.abs(path)
	// RemoveAll reports success for missing paths, the host contract does not.
	if _, err := os.Lstat(fullPath); err != nil {
		return err
	}
	return os.RemoveAll(fullPath)
}

func (l *LocalFileSystem) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(l.abs(from), l.abs(to))
}

func (l *LocalFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcFile, err := os.Open(l.abs(src))
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(l.abs(dst))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}

func (l *LocalFileSystem) MakeDir(ctx context.Context, path string, intermediates bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if intermediates {
		return os.MkdirAll(l.abs(path), 0755)
	}
	return os.Mkdir(l.abs(path), 0755)
}

func (l *LocalFileSystem) List(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.abs(path))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (l *LocalFileSystem) Stat(ctx context.Context, path string, withSize bool) (*FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(l.abs(path))
	if err != nil {
		return nil, err
	}
	entry := &FileEntry{
		Name:    info.Name(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Path:    strings.TrimPrefix(filepath.ToSlash(path), "/"),
	}
	if withSize {
		entry.Size = info.Size()
	}
	return entry, nil
}
