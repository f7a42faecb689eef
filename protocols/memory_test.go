package protocols

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hostContract runs the behaviour every FileSystem must share against fsys.
func hostContract(t *testing.T, fsys FileSystem) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, fsys.MakeDir(ctx, "docs/sub", true))
	require.NoError(t, fsys.WriteFile(ctx, "docs/a.txt", []byte("alpha")))
	require.NoError(t, fsys.WriteFile(ctx, "docs/sub/b.txt", []byte("beta")))

	data, err := fsys.ReadFile(ctx, "docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	names, err := fsys.List(ctx, "docs")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "sub"}, names)

	entry, err := fsys.Stat(ctx, "docs/a.txt", true)
	require.NoError(t, err)
	assert.False(t, entry.IsDir)
	assert.Equal(t, int64(5), entry.Size)
	assert.Equal(t, "a.txt", entry.Name)

	entry, err = fsys.Stat(ctx, "docs/a.txt", false)
	require.NoError(t, err)
	assert.Zero(t, entry.Size)

	entry, err = fsys.Stat(ctx, "docs/sub", true)
	require.NoError(t, err)
	assert.True(t, entry.IsDir)

	require.NoError(t, fsys.Copy(ctx, "docs/a.txt", "docs/c.txt"))
	data, err = fsys.ReadFile(ctx, "docs/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))

	require.NoError(t, fsys.Move(ctx, "docs/c.txt", "docs/d.txt"))
	_, err = fsys.Stat(ctx, "docs/c.txt", false)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	err = fsys.MakeDir(ctx, "x/y", false)
	assert.Error(t, err)

	require.NoError(t, fsys.Move(ctx, "docs/sub", "docs/moved"))
	data, err = fsys.ReadFile(ctx, "docs/moved/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
	_, err = fsys.Stat(ctx, "docs/sub", false)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, fsys.Remove(ctx, "docs/moved"))
	_, err = fsys.Stat(ctx, "docs/moved/b.txt", false)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = fsys.ReadFile(ctx, "missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, fsys.Remove(ctx, "missing.txt"), fs.ErrNotExist)
	_, err = fsys.List(ctx, "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_Contract(t *testing.T) {
	hostContract(t, NewMemoryFileSystem())
}

func TestMemoryFileSystem_MoveDirectory(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFileSystem()
	require.NoError(t, m.MakeDir(ctx, "src/inner", true))
	require.NoError(t, m.WriteFile(ctx, "src/inner/f.txt", []byte("f")))

	require.NoError(t, m.Move(ctx, "src", "dst"))

	data, err := m.ReadFile(ctx, "dst/inner/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "f", string(data))
	_, err = m.Stat(ctx, "src", false)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestMemoryFileSystem_MoveIntoOwnSubtree(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFileSystem()
	require.NoError(t, m.MakeDir(ctx, "a", true))
	require.NoError(t, m.WriteFile(ctx, "a/f.txt", []byte("x")))

	for _, to := range []string{"a/b", "a/b/c", "a", "/a/"} {
		assert.ErrorIs(t, m.Move(ctx, "a", to), fs.ErrInvalid, to)
	}
	assert.ErrorIs(t, m.Move(ctx, "", "elsewhere"), fs.ErrInvalid)

	names, err := m.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
	names, err = m.List(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"f.txt"}, names)

	// A sibling sharing the name prefix is not a descendant.
	require.NoError(t, m.Move(ctx, "a", "ab"))
	data, err := m.ReadFile(ctx, "ab/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMemoryFileSystem_Errors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFileSystem()
	require.NoError(t, m.WriteFile(ctx, "file", []byte("x")))

	assert.ErrorIs(t, m.MakeDir(ctx, "file", false), fs.ErrExist)
	assert.Error(t, m.MakeDir(ctx, "file/child", true), "file is not a directory")
	assert.Error(t, m.WriteFile(ctx, "file/child", nil))
	assert.Error(t, m.Copy(ctx, "", "copy"))

	require.NoError(t, m.MakeDir(ctx, "dir", true))
	assert.Error(t, m.WriteFile(ctx, "dir", []byte("x")))
	assert.ErrorIs(t, m.Move(ctx, "file", "dir"), fs.ErrExist)
}

func TestMemoryFileSystem_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryFileSystem()
	src := []byte("abc")
	require.NoError(t, m.WriteFile(ctx, "f", src))
	src[0] = 'z'

	data, err := m.ReadFile(ctx, "f")
	require.NoError(t, err)
	data[1] = 'z'

	again, err := m.ReadFile(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestMemoryFileSystem_HasNoNativeAppend(t *testing.T) {
	var fsys FileSystem = NewMemoryFileSystem()
	_, ok := fsys.(Appender)
	assert.False(t, ok)
}
