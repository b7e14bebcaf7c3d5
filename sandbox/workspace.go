package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"go.uber.org/multierr"
)

// File permission constants
const (
	DirPermission  = 0o700
	FilePermission = 0o600
)

// FileSystem defines an interface for file system operations
type FileSystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(filename string, data []byte, perm os.FileMode) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error
	Glob(pattern string) ([]string, error)
	FileExists(path string) (bool, error)
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (RealFileSystem) WriteFile(filename string, data []byte, perm os.FileMode) error {
	return os.WriteFile(filename, data, perm)
}

func (RealFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (RealFileSystem) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (RealFileSystem) Glob(pattern string) ([]string, error) {
	return filepath.Glob(pattern)
}

func (RealFileSystem) FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// Workspace is the per-request directory holding one execution's files.
type Workspace struct {
	Token      string
	Language   Language
	Dir        string
	SourcePath string
	OutputPath string // empty for interpreted languages
}

// WorkspaceManager creates and reclaims workspaces under a fixed root.
type WorkspaceManager struct {
	root string
	fs   FileSystem
}

// NewWorkspaceManager ensures root exists and returns a manager scoped to it.
func NewWorkspaceManager(root string, fs FileSystem) (*WorkspaceManager, error) {
	root = filepath.Clean(root)
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("workspace root must be absolute: %s", root)
	}
	if err := fs.MkdirAll(root, DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return &WorkspaceManager{root: root, fs: fs}, nil
}

// Root returns the directory every workspace lives under.
func (m *WorkspaceManager) Root() string {
	return m.root
}

// Write allocates a workspace for p and writes the (possibly wrapped) source.
func (m *WorkspaceManager) Write(p Profile, code string) (*Workspace, error) {
	token := xid.New().String()
	dir := filepath.Join(m.root, string(p.Language())+"-"+token)

	ws := &Workspace{
		Token:    token,
		Language: p.Language(),
		Dir:      dir,
	}
	ws.SourcePath = filepath.Join(dir, p.SourceName(token))
	ws.OutputPath = p.OutputPath(ws)

	if err := m.fs.MkdirAll(dir, DirPermission); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	if err := m.fs.WriteFile(ws.SourcePath, []byte(p.WrapSource(code)), FilePermission); err != nil {
		if rmErr := m.fs.RemoveAll(dir); rmErr != nil {
			err = multierr.Append(err, rmErr)
		}
		return nil, fmt.Errorf("failed to write source: %w", err)
	}

	return ws, nil
}

// Cleanup removes the source, build outputs and side artifacts of ws, then the
// workspace directory itself. Missing files are not an error, so calling it
// twice is safe.
func (m *WorkspaceManager) Cleanup(p Profile, ws *Workspace) error {
	if ws == nil {
		return nil
	}

	var errs error
	paths := append([]string{ws.SourcePath}, p.Artifacts(ws)...)
	if ws.OutputPath != "" {
		paths = append(paths, ws.OutputPath)
	}

	for _, path := range paths {
		matches := []string{path}
		if strings.ContainsAny(path, "*?[") {
			globbed, err := m.fs.Glob(path)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("glob %s: %w", filepath.Base(path), err))
				continue
			}
			matches = globbed
		}
		for _, match := range matches {
			errs = multierr.Append(errs, m.remove(match))
		}
	}

	return multierr.Append(errs, m.remove(ws.Dir))
}

func (m *WorkspaceManager) remove(path string) error {
	if !m.contains(path) {
		return fmt.Errorf("refusing to remove %s: outside workspace root", filepath.Base(path))
	}
	if err := m.fs.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (m *WorkspaceManager) contains(path string) bool {
	rel, err := filepath.Rel(m.root, filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
