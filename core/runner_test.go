package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostfs/config"
	"hostfs/protocols"
)

func TestRefresher_RunOnceSavesSnapshot(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "snap.json")
	host := protocols.NewMemoryFileSystem()
	f := New(host, WithSnapshot(NewSnapshot(file, 0)))
	require.NoError(t, f.WriteFile(ctx, "a.txt", "one", ""))
	require.NoError(t, host.WriteFile(ctx, "a.txt", []byte("two")))

	NewRefresher(f, "@every 1h", nil).RunOnce(ctx)

	loaded := NewSnapshot(file, 0)
	require.NoError(t, loaded.Load())
	data, ok := loaded.Data("a.txt")
	require.True(t, ok)
	assert.Equal(t, "two", string(data))
}

func TestRefresher_StartRejectsBadSpec(t *testing.T) {
	f := New(protocols.NewMemoryFileSystem(), WithSnapshot(NewSnapshot("", 0)))
	r := NewRefresher(f, "not a schedule", nil)
	assert.Error(t, r.Start(context.Background()))
}

func TestRefresher_StartRunsImmediately(t *testing.T) {
	ctx := context.Background()
	host := protocols.NewMemoryFileSystem()
	f := New(host, WithSnapshot(NewSnapshot("", 0)))
	assert.False(t, f.Exists(ctx, "late.txt"))
	require.NoError(t, host.WriteFile(ctx, "late.txt", nil))

	r := NewRefresher(f, "@every 1h", nil)
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	require.Eventually(t, func() bool {
		exists, ok := f.ExistsCached("late.txt")
		return ok && exists
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRefresher_StopWaitsForInitialRefresh(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "snap.json")
	host := protocols.NewMemoryFileSystem()
	f := New(host, WithSnapshot(NewSnapshot(file, 0)))
	require.NoError(t, f.WriteFile(ctx, "a.txt", "one", ""))

	r := NewRefresher(f, "@every 1h", nil)
	require.NoError(t, r.Start(ctx))
	r.Stop()

	assert.FileExists(t, file, "initial refresh saved before Stop returned")
	require.NoError(t, f.Snapshot().Save())
}

func TestWatcher_InvalidatesChangedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))

	snap := NewSnapshot("", 0)
	snap.SetData("sub/a.txt", []byte("old"))
	snap.SetExists("untouched.txt", true)

	w, err := NewWatcher(root, snap, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("new"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := snap.Data("sub/a.txt")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := snap.Exists("untouched.txt")
	assert.True(t, ok)
}

func TestNewHost(t *testing.T) {
	ctx := context.Background()

	root := filepath.Join(t.TempDir(), "nested", "root")
	host, err := NewHost(ctx, config.Host{Type: "local", RootPath: root})
	require.NoError(t, err)
	defer host.Close()
	assert.IsType(t, &protocols.LocalFileSystem{}, host)
	assert.DirExists(t, root)

	host, err = NewHost(ctx, config.Host{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &protocols.MemoryFileSystem{}, host)

	_, err = NewHost(ctx, config.Host{Type: "sftp"})
	assert.Error(t, err)
	_, err = NewHost(ctx, config.Host{Type: "ftp"})
	assert.Error(t, err)
	_, err = NewHost(ctx, config.Host{Type: "minio"})
	assert.Error(t, err)
	_, err = NewHost(ctx, config.Host{Type: "gopher"})
	assert.Error(t, err)
}
