package protocols

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPFileSystem struct {
	Host     string
	Port     int
	User     string
	Password string
	RootPath string
	client   *sftp.Client
	sshConn  *ssh.Client
}

// NewSFTPFromClient wraps an already connected client. Init becomes a no-op
// and Close closes the client.
func NewSFTPFromClient(client *sftp.Client, rootPath string) *SFTPFileSystem {
	return &SFTPFileSystem{RootPath: rootPath, client: client}
}

func (s *SFTPFileSystem) Init(_ context.Context) error {
	if s.client != nil {
		return nil
	}
	config := &ssh.ClientConfig{
		User: s.User,
		Auth: []ssh.AuthMethod{
			ssh.Password(s.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return err
	}
	s.sshConn = conn

	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return err
	}
	s.client = client
	return nil
}

func (s *SFTPFileSystem) Close() error {
	if s.client != nil {
		s.client.Close()
	}
	if s.sshConn != nil {
		s.sshConn.Close()
	}
	return nil
}

func (s *SFTPFileSystem) full(relPath string) string {
	return path.Join(s.RootPath, clean(relPath))
}

func (s *SFTPFileSystem) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.client.Open(s.full(relPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *SFTPFileSystem) WriteFile(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.client.Create(s.full(relPath))
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *SFTPFileSystem) AppendFile(ctx context.Context, relPath string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.client.OpenFile(s.full(relPath), os.O_WRONLY|os.O_APPEND|os.O_CREATE)
	if err != nil {
		return err
	}
	// Not every server honours the append flag, so position explicitly.
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *SFTPFileSystem) Remove(ctx context.Context, relPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.removeAll(s.full(relPath))
}

func (s *SFTPFileSystem) removeAll(fullPath string) error {
	info, err := s.client.Lstat(fullPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return s.client.Remove(fullPath)
	}

	children, err := s.client.ReadDir(fullPath)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.removeAll(path.Join(fullPath, child.Name())); err != nil {
			return err
		}
	}
	return s.client.RemoveDirectory(fullPath)
}

func (s *SFTPFileSystem) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Rename(s.full(from), s.full(to))
}

func (s *SFTPFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcFile, err := s.client.Open(s.full(src))
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := s.client.Create(s.full(dst))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}

func (s *SFTPFileSystem) MakeDir(ctx context.Context, relPath string, intermediates bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if intermediates {
		return s.client.MkdirAll(s.full(relPath))
	}
	return s.client.Mkdir(s.full(relPath))
}

func (s *SFTPFileSystem) List(ctx context.Context, relPath string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.client.ReadDir(s.full(relPath))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *SFTPFileSystem) Stat(ctx context.Context, relPath string, withSize bool) (*FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := s.client.Stat(s.full(relPath))
	if err != nil {
		return nil, err
	}
	entry := &FileEntry{
		Name:    info.Name(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
		Path:    relPath,
	}
	if withSize {
		entry.Size = info.Size()
	}
	return entry, nil
}
