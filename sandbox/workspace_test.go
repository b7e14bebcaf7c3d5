package sandbox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkspaceManager(t *testing.T) {
	t.Run("CreatesRoot", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "root")
		m, err := NewWorkspaceManager(root, RealFileSystem{})
		require.NoError(t, err)
		assert.Equal(t, root, m.Root())
		assert.DirExists(t, root)
	})

	t.Run("RejectsRelativeRoot", func(t *testing.T) {
		_, err := NewWorkspaceManager("relative/root", RealFileSystem{})
		require.Error(t, err)
	})

	t.Run("MkdirFailure", func(t *testing.T) {
		fs := newMockFileSystem()
		fs.mkdirAllErrors["/work"] = errors.New("read-only file system")
		_, err := NewWorkspaceManager("/work", fs)
		require.Error(t, err)
	})
}

func TestWorkspaceLifecycle(t *testing.T) {
	r, err := NewRegistry(nil)
	require.NoError(t, err)

	t.Run("WriteAndCleanup", func(t *testing.T) {
		root := t.TempDir()
		m, err := NewWorkspaceManager(root, RealFileSystem{})
		require.NoError(t, err)

		p := mustProfile(t, r, LanguagePython)
		ws, err := m.Write(p, "print('hi')")
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(root, "python-"+ws.Token), ws.Dir)
		assert.Equal(t, filepath.Join(ws.Dir, "main_"+ws.Token+".py"), ws.SourcePath)
		assert.Empty(t, ws.OutputPath)

		data, err := os.ReadFile(ws.SourcePath)
		require.NoError(t, err)
		assert.Equal(t, "# -*- coding: utf-8 -*-\nprint('hi')", string(data))

		// Side artifacts the program may have left behind.
		require.NoError(t, os.MkdirAll(filepath.Join(ws.Dir, "__pycache__"), 0o700))
		require.NoError(t, os.WriteFile(filepath.Join(ws.Dir, "__pycache__", "x.pyc"), nil, 0o600))

		require.NoError(t, m.Cleanup(p, ws))
		assert.NoDirExists(t, ws.Dir)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)

		// Second cleanup is a no-op.
		require.NoError(t, m.Cleanup(p, ws))
	})

	t.Run("JavaClassFiles", func(t *testing.T) {
		root := t.TempDir()
		m, err := NewWorkspaceManager(root, RealFileSystem{})
		require.NoError(t, err)

		p := mustProfile(t, r, LanguageJava)
		ws, err := m.Write(p, "public class Main {}")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(ws.Dir, "Main.java"), ws.SourcePath)
		assert.Equal(t, filepath.Join(ws.Dir, "Main.class"), ws.OutputPath)

		for _, name := range []string{"Main.class", "Main$Inner.class"} {
			require.NoError(t, os.WriteFile(filepath.Join(ws.Dir, name), []byte{0xca, 0xfe}, 0o600))
		}

		require.NoError(t, m.Cleanup(p, ws))
		assert.NoDirExists(t, ws.Dir)
	})

	t.Run("TokensAreUnique", func(t *testing.T) {
		m, err := NewWorkspaceManager(t.TempDir(), RealFileSystem{})
		require.NoError(t, err)

		p := mustProfile(t, r, LanguageC)
		seen := make(map[string]bool)
		for range 50 {
			ws, err := m.Write(p, "int main(void){return 0;}")
			require.NoError(t, err)
			assert.False(t, seen[ws.SourcePath], "duplicate path %s", ws.SourcePath)
			seen[ws.SourcePath] = true
			require.NoError(t, m.Cleanup(p, ws))
		}
	})

	t.Run("WriteFailureRemovesDirectory", func(t *testing.T) {
		fs := newMockFileSystem()
		m, err := NewWorkspaceManager("/work", fs)
		require.NoError(t, err)

		p := mustProfile(t, r, LanguageGo)
		failing := &failingWriteFS{MockFileSystem: fs}
		m.fs = failing

		_, err = m.Write(p, "package main")
		require.Error(t, err)
		require.Len(t, fs.removed, 1)
		assert.True(t, strings.HasPrefix(fs.removed[0], "/work/go-"))
	})

	t.Run("CleanupAggregatesErrors", func(t *testing.T) {
		fs := newMockFileSystem()
		m, err := NewWorkspaceManager("/work", fs)
		require.NoError(t, err)

		p := mustProfile(t, r, LanguageC)
		ws, err := m.Write(p, "int main(void){return 0;}")
		require.NoError(t, err)

		fs.removeAllErrors[ws.SourcePath] = errors.New("busy")
		fs.removeAllErrors[ws.Dir] = errors.New("not empty")

		err = m.Cleanup(p, ws)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "busy")
		assert.Contains(t, err.Error(), "not empty")
		// Output was still attempted after the source failed.
		assert.Contains(t, fs.removed, ws.OutputPath)
	})

	t.Run("RefusesPathsOutsideRoot", func(t *testing.T) {
		fs := newMockFileSystem()
		m, err := NewWorkspaceManager("/work", fs)
		require.NoError(t, err)

		p := mustProfile(t, r, LanguageRuby)
		ws := &Workspace{
			Token:      "evil",
			Language:   LanguageRuby,
			Dir:        "/work/../etc",
			SourcePath: "/etc/passwd",
		}

		err = m.Cleanup(p, ws)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outside workspace root")
		assert.Empty(t, fs.removed)

		assert.Error(t, m.remove("/work"), "the root itself is never removed")
	})

	t.Run("NilWorkspace", func(t *testing.T) {
		m, err := NewWorkspaceManager(t.TempDir(), RealFileSystem{})
		require.NoError(t, err)
		assert.NoError(t, m.Cleanup(mustProfile(t, r, LanguagePython), nil))
	})
}

type failingWriteFS struct {
	*MockFileSystem
}

func (failingWriteFS) WriteFile(string, []byte, os.FileMode) error {
	return errors.New("disk full")
}
