//go:build unix && !linux

package sandbox

import (
	"errors"
	"os/exec"
	"syscall"
)

func configureProcAttr(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// groupTerminator signals the whole process group led by the spawned process.
type groupTerminator struct{}

func newTerminator() terminator {
	return groupTerminator{}
}

func (groupTerminator) Terminate(h *ProcessHandle) error {
	if h == nil || h.Pid <= 0 {
		return nil
	}
	err := syscall.Kill(-h.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

func (groupTerminator) Survivors(*ProcessHandle) []int {
	return nil
}
