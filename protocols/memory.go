package protocols

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	errIsDir  = errors.New("is a directory")
	errNotDir = errors.New("not a directory")
)

type memNode struct {
	dir     bool
	data    []byte
	modTime time.Time
}

// MemoryFileSystem is an in-process host used for tests and dry runs.
// It has no native append, so callers exercise their read-then-write path.
// Thread-safe for concurrent reads and writes.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
}

// NewMemoryFileSystem creates an empty host holding only the root directory.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		nodes: map[string]*memNode{"": {dir: true, modTime: time.Now()}},
	}
}

func (m *MemoryFileSystem) Init(_ context.Context) error {
	return nil
}

func (m *MemoryFileSystem) Close() error {
	return nil
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

func pathErr(op, p string, err error) error {
	return &fs.PathError{Op: op, Path: p, Err: err}
}

// requireDir must be called with the lock held.
func (m *MemoryFileSystem) requireDir(op, p string) error {
	n, ok := m.nodes[p]
	if !ok {
		return pathErr(op, p, fs.ErrNotExist)
	}
	if !n.dir {
		return pathErr(op, p, errNotDir)
	}
	return nil
}

func (m *MemoryFileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = clean(p)
	n, ok := m.nodes[p]
	if !ok {
		return nil, pathErr("read", p, fs.ErrNotExist)
	}
	if n.dir {
		return nil, pathErr("read", p, errIsDir)
	}
	// Return a copy to prevent external mutation
	return append([]byte(nil), n.data...), nil
}

func (m *MemoryFileSystem) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p = clean(p)
	if err := m.requireDir("write", parentOf(p)); err != nil {
		return err
	}
	if n, ok := m.nodes[p]; ok && n.dir {
		return pathErr("write", p, errIsDir)
	}
	m.nodes[p] = &memNode{data: append([]byte(nil), data...), modTime: time.Now()}
	return nil
}

func (m *MemoryFileSystem) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p = clean(p)
	if _, ok := m.nodes[p]; !ok {
		return pathErr("remove", p, fs.ErrNotExist)
	}
	for name := range m.nodes {
		if p == "" || name == p || strings.HasPrefix(name, p+"/") {
			delete(m.nodes, name)
		}
	}
	if p == "" {
		m.nodes[""] = &memNode{dir: true, modTime: time.Now()}
	}
	return nil
}

func (m *MemoryFileSystem) Move(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	from, to = clean(from), clean(to)
	if _, ok := m.nodes[from]; !ok {
		return pathErr("rename", from, fs.ErrNotExist)
	}
	// A directory cannot become its own descendant.
	if from == "" || to == from || strings.HasPrefix(to, from+"/") {
		return pathErr("rename", to, fs.ErrInvalid)
	}
	if _, ok := m.nodes[to]; ok {
		return pathErr("rename", to, fs.ErrExist)
	}
	if err := m.requireDir("rename", parentOf(to)); err != nil {
		return err
	}

	moved := make(map[string]*memNode)
	for name, n := range m.nodes {
		switch {
		case name == from:
			moved[to] = n
		case strings.HasPrefix(name, from+"/"):
			moved[to+strings.TrimPrefix(name, from)] = n
		default:
			continue
		}
		delete(m.nodes, name)
	}
	for name, n := range moved {
		m.nodes[name] = n
	}
	return nil
}

func (m *MemoryFileSystem) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, dst = clean(src), clean(dst)
	n, ok := m.nodes[src]
	if !ok {
		return pathErr("copy", src, fs.ErrNotExist)
	}
	if n.dir {
		return pathErr("copy", src, errIsDir)
	}
	if err := m.requireDir("copy", parentOf(dst)); err != nil {
		return err
	}
	if d, ok := m.nodes[dst]; ok && d.dir {
		return pathErr("copy", dst, errIsDir)
	}
	m.nodes[dst] = &memNode{data: append([]byte(nil), n.data...), modTime: time.Now()}
	return nil
}

func (m *MemoryFileSystem) MakeDir(ctx context.Context, p string, intermediates bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p = clean(p)
	if !intermediates {
		if _, ok := m.nodes[p]; ok {
			return pathErr("mkdir", p, fs.ErrExist)
		}
		if err := m.requireDir("mkdir", parentOf(p)); err != nil {
			return err
		}
		m.nodes[p] = &memNode{dir: true, modTime: time.Now()}
		return nil
	}

	var segments []string
	for curr := p; curr != ""; curr = parentOf(curr) {
		segments = append(segments, curr)
	}
	for i := len(segments) - 1; i >= 0; i-- {
		n, ok := m.nodes[segments[i]]
		if !ok {
			m.nodes[segments[i]] = &memNode{dir: true, modTime: time.Now()}
			continue
		}
		if !n.dir {
			return pathErr("mkdir", segments[i], errNotDir)
		}
	}
	return nil
}

func (m *MemoryFileSystem) List(ctx context.Context, p string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = clean(p)
	if err := m.requireDir("readdir", p); err != nil {
		return nil, err
	}

	names := []string{}
	for name := range m.nodes {
		if name != "" && parentOf(name) == p {
			names = append(names, path.Base(name))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryFileSystem) Stat(ctx context.Context, p string, withSize bool) (*FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = clean(p)
	n, ok := m.nodes[p]
	if !ok {
		return nil, pathErr("stat", p, fs.ErrNotExist)
	}
	entry := &FileEntry{
		Name:    path.Base("/" + p),
		ModTime: n.modTime,
		IsDir:   n.dir,
		Path:    p,
	}
	if withSize && !n.dir {
		entry.Size = int64(len(n.data))
	}
	return entry, nil
}
