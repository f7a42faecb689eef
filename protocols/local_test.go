package protocols

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalFileSystem {
	t.Helper()
	l := &LocalFileSystem{RootPath: filepath.Join(t.TempDir(), "root")}
	require.NoError(t, l.Init(context.Background()))
	return l
}

func TestLocalFileSystem_Contract(t *testing.T) {
	hostContract(t, newLocal(t))
}

func TestLocalFileSystem_Append(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	require.NoError(t, l.AppendFile(ctx, "log.txt", []byte("a")))
	require.NoError(t, l.AppendFile(ctx, "log.txt", []byte("b")))

	data, err := os.ReadFile(filepath.Join(l.RootPath, "log.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ab", string(data))
}

func TestLocalFileSystem_StaysUnderRoot(t *testing.T) {
	ctx := context.Background()
	l := newLocal(t)

	require.NoError(t, l.WriteFile(ctx, "/abs.txt", []byte("x")))
	assert.FileExists(t, filepath.Join(l.RootPath, "abs.txt"))

	parent := filepath.Dir(l.RootPath)
	for _, p := range []string{"../up.txt", "a/../../up.txt", "/../../up.txt"} {
		require.NoError(t, l.WriteFile(ctx, p, []byte("x")), p)
		assert.NoFileExists(t, filepath.Join(parent, "up.txt"), p)
		assert.FileExists(t, filepath.Join(l.RootPath, "up.txt"), p)
	}

	require.NoError(t, l.MakeDir(ctx, "../../d", true))
	assert.DirExists(t, filepath.Join(l.RootPath, "d"))
	require.NoError(t, l.Remove(ctx, "../d"))
	assert.NoDirExists(t, filepath.Join(l.RootPath, "d"))
	assert.DirExists(t, l.RootPath)
}

func TestLocalFileSystem_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := newLocal(t)

	_, err := l.ReadFile(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, l.WriteFile(ctx, "x", nil), context.Canceled)
}
