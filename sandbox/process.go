package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

const (
	defaultMaxOutputBytes = 1 << 20
	defaultKillGrace      = 500 * time.Millisecond

	// runMarkerKey tags every process of a run through its inherited
	// environment, so members that left the group can still be found.
	runMarkerKey = "CODERUNNER_RUN_ID"
)

var errKillGraceExceeded = errors.New("process tree still running after kill grace period")

// Command is one compiler or program invocation.
type Command struct {
	Args    []string
	Dir     string
	Env     []string // appended to the host environment
	Stdin   *string  // nil closes stdin immediately
	Timeout time.Duration
}

// ProcessResult is what a finished (or killed) process left behind.
type ProcessResult struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	TimedOut  bool
	Truncated bool
	Duration  time.Duration
}

// ProcessRunner spawns a command and resolves it to exactly one result.
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command) (ProcessResult, error)
}

// ProcessHandle is a live process and, through its group, its descendants.
type ProcessHandle struct {
	Pid     int
	Started time.Time
	cmd     *exec.Cmd
	// marker is the KEY=value environment entry shared by the whole tree.
	marker string
	// reaped is set once Wait has returned; the pid may then belong to someone else.
	reaped bool
}

// terminator kills a whole process tree. One backend is compiled in per platform.
type terminator interface {
	Terminate(h *ProcessHandle) error
	// Survivors lists pids of the tree still alive, when the platform can tell.
	Survivors(h *ProcessHandle) []int
}

// LocalProcessRunner runs commands on the host.
type LocalProcessRunner struct {
	logger    *zap.Logger
	maxOutput int
	killGrace time.Duration
	term      terminator
	recorder  Recorder
}

// ProcessRunnerOption defines a functional option for LocalProcessRunner
type ProcessRunnerOption func(*LocalProcessRunner)

// WithMaxOutputBytes caps each captured stream.
func WithMaxOutputBytes(n int) ProcessRunnerOption {
	return func(r *LocalProcessRunner) {
		r.maxOutput = n
	}
}

// WithKillGrace sets how long to wait for a killed tree to be reaped.
func WithKillGrace(d time.Duration) ProcessRunnerOption {
	return func(r *LocalProcessRunner) {
		r.killGrace = d
	}
}

// WithProcessRecorder reports kills to rec.
func WithProcessRecorder(rec Recorder) ProcessRunnerOption {
	return func(r *LocalProcessRunner) {
		r.recorder = rec
	}
}

// NewLocalProcessRunner selects the platform termination backend once.
func NewLocalProcessRunner(logger *zap.Logger, opts ...ProcessRunnerOption) *LocalProcessRunner {
	r := &LocalProcessRunner{
		logger:    logger,
		maxOutput: defaultMaxOutputBytes,
		killGrace: defaultKillGrace,
		term:      newTerminator(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run spawns cmd, feeds stdin, and waits for exit, the timer, or ctx.
// A process stopped by the timer always yields TimedOut, whatever its exit
// status. Cancellation of ctx kills the tree and returns ctx's error.
func (r *LocalProcessRunner) Run(ctx context.Context, cmd Command) (ProcessResult, error) {
	if len(cmd.Args) < 1 || cmd.Args[0] == "" {
		return ProcessResult{}, fmt.Errorf("no command provided")
	}

	c := exec.Command(cmd.Args[0], cmd.Args[1:]...) //nolint:gosec // Running user toolchains is intended functionality
	c.Dir = cmd.Dir
	marker := runMarkerKey + "=" + xid.New().String()
	c.Env = append(append(os.Environ(), cmd.Env...), marker)
	c.WaitDelay = r.killGrace
	configureProcAttr(c)

	stdout := newLimitedBuffer(r.maxOutput)
	stderr := newLimitedBuffer(r.maxOutput)
	c.Stdout = stdout
	c.Stderr = stderr

	var stdin io.WriteCloser
	if cmd.Stdin != nil {
		pipe, err := c.StdinPipe()
		if err != nil {
			return ProcessResult{}, fmt.Errorf("failed to open stdin: %w", err)
		}
		stdin = pipe
	}

	if err := c.Start(); err != nil {
		return ProcessResult{}, fmt.Errorf("failed to start %s: %w", cmd.Args[0], err)
	}

	h := &ProcessHandle{Pid: c.Process.Pid, Started: time.Now(), cmd: c, marker: marker}

	if stdin != nil {
		go r.feedStdin(h, stdin, *cmd.Stdin)
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- c.Wait()
	}()

	timer := time.NewTimer(cmd.Timeout)
	defer timer.Stop()

	var (
		waitErr  error
		timedOut bool
		canceled bool
	)
	select {
	case waitErr = <-waitCh:
		// Sweep anything the program left running, in its group or detached.
		h.reaped = true
		if err := r.term.Terminate(h); err != nil {
			r.logger.Debug("post-exit sweep failed", zap.Int("pid", h.Pid), zap.Error(err))
		}
	case <-timer.C:
		timedOut = true
		waitErr = r.kill(h, waitCh, "timeout")
	case <-ctx.Done():
		canceled = true
		waitErr = r.kill(h, waitCh, "canceled")
	}

	result := ProcessResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  exitCode(waitErr, c),
		TimedOut:  timedOut,
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  time.Since(h.Started),
	}

	if canceled {
		return result, fmt.Errorf("execution canceled: %w", ctx.Err())
	}

	if waitErr != nil && !timedOut && !isExitOrDelay(waitErr) {
		return result, fmt.Errorf("failed to wait for %s: %w", cmd.Args[0], waitErr)
	}

	return result, nil
}

// kill terminates the tree and waits up to the grace period for the reap. It
// never blocks longer than that; a tree that refuses to die is logged.
func (r *LocalProcessRunner) kill(h *ProcessHandle, waitCh <-chan error, reason string) error {
	r.recorder.ProcessKilled(reason)
	if err := r.term.Terminate(h); err != nil {
		r.logger.Warn("failed to terminate process tree", zap.Int("pid", h.Pid), zap.String("reason", reason), zap.Error(err))
	}

	grace := time.NewTimer(r.killGrace)
	defer grace.Stop()

	select {
	case err := <-waitCh:
		return err
	case <-grace.C:
		r.logger.Error("process tree survived kill",
			zap.Int("pid", h.Pid),
			zap.Ints("survivors", r.term.Survivors(h)),
			zap.Duration("grace", r.killGrace))
		return errKillGraceExceeded
	}
}

// feedStdin writes input line by line, then closes the pipe.
func (r *LocalProcessRunner) feedStdin(h *ProcessHandle, w io.WriteCloser, input string) {
	defer w.Close()

	bw := bufio.NewWriter(w)
	for _, line := range strings.SplitAfter(input, "\n") {
		if line == "" {
			continue
		}
		if _, err := bw.WriteString(line); err != nil {
			r.logger.Debug("stdin write stopped", zap.Int("pid", h.Pid), zap.Error(err))
			return
		}
		if err := bw.Flush(); err != nil {
			// The program exited or closed stdin without reading everything.
			r.logger.Debug("stdin write stopped", zap.Int("pid", h.Pid), zap.Error(err))
			return
		}
	}
}

func exitCode(err error, c *exec.Cmd) int {
	if errors.Is(err, errKillGraceExceeded) {
		// Wait is still running; ProcessState is not ours to read.
		return -1
	}
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func isExitOrDelay(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) || errors.Is(err, exec.ErrWaitDelay) || errors.Is(err, errKillGraceExceeded)
}

// limitedBuffer keeps at most limit bytes and is safe for concurrent use, so a
// waiter left behind after a failed kill cannot race the reader.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit int) *limitedBuffer {
	return &limitedBuffer{limit: limit}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
