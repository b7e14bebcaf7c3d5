package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MockFileSystem implements FileSystem in memory for testing
type MockFileSystem struct {
	mu              sync.Mutex
	files           map[string][]byte
	dirs            map[string]bool
	renamed         map[string]string
	removed         []string
	mkdirAllErrors  map[string]error
	writeFileErrors map[string]error
	removeAllErrors map[string]error
	renameError     error
}

func newMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:           make(map[string][]byte),
		dirs:            make(map[string]bool),
		renamed:         make(map[string]string),
		mkdirAllErrors:  make(map[string]error),
		writeFileErrors: make(map[string]error),
		removeAllErrors: make(map[string]error),
	}
}

func (m *MockFileSystem) MkdirAll(path string, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, exists := m.mkdirAllErrors[path]; exists {
		return err
	}
	m.dirs[path] = true
	return nil
}

func (m *MockFileSystem) WriteFile(filename string, data []byte, _ os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, exists := m.writeFileErrors[filename]; exists {
		return err
	}
	m.files[filename] = data
	return nil
}

func (m *MockFileSystem) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, exists := m.removeAllErrors[path]; exists {
		return err
	}
	m.removed = append(m.removed, path)
	for name := range m.files {
		if name == path || strings.HasPrefix(name, path+string(filepath.Separator)) {
			delete(m.files, name)
		}
	}
	delete(m.dirs, path)
	return nil
}

func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renameError != nil {
		return m.renameError
	}
	m.renamed[oldpath] = newpath
	if data, ok := m.files[oldpath]; ok {
		delete(m.files, oldpath)
		m.files[newpath] = data
	}
	return nil
}

func (m *MockFileSystem) Glob(pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []string
	for name := range m.files {
		if ok, err := filepath.Match(pattern, name); err != nil {
			return nil, err
		} else if ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

func (m *MockFileSystem) FileExists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *MockFileSystem) fileCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// MockProcessRunner replays canned results in call order and records commands.
type MockProcessRunner struct {
	mu       sync.Mutex
	results  []ProcessResult
	errs     []error
	commands []Command
	// onRun, when set, runs before the canned result is returned.
	onRun func(Command)
}

func (m *MockProcessRunner) Run(_ context.Context, cmd Command) (ProcessResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := len(m.commands)
	m.commands = append(m.commands, cmd)
	if m.onRun != nil {
		m.onRun(cmd)
	}

	var (
		res ProcessResult
		err error
	)
	if i < len(m.results) {
		res = m.results[i]
	}
	if i < len(m.errs) {
		err = m.errs[i]
	}
	return res, err
}

func (m *MockProcessRunner) calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.commands...)
}

// recordingRecorder captures Recorder calls.
type recordingRecorder struct {
	mu       sync.Mutex
	started  []string
	finished []string
	kills    []string
}

func (r *recordingRecorder) ExecutionStarted(language string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, language)
}

func (r *recordingRecorder) ExecutionFinished(language, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, language+":"+outcome)
}

func (r *recordingRecorder) ProcessKilled(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kills = append(r.kills, reason)
}
