//go:build windows

package sandbox

import (
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
)

func configureProcAttr(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// treeTerminator has no process groups to signal, so it lets taskkill walk
// the tree and force-terminate every member.
type treeTerminator struct{}

func newTerminator() terminator {
	return treeTerminator{}
}

func (treeTerminator) Terminate(h *ProcessHandle) error {
	// Without a job object the tree is gone with its root once reaped.
	if h == nil || h.Pid <= 0 || h.reaped {
		return nil
	}
	out, err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(h.Pid)).CombinedOutput()
	if err == nil {
		return nil
	}
	if h.cmd != nil && h.cmd.Process != nil {
		if killErr := h.cmd.Process.Kill(); killErr == nil {
			return nil
		}
	}
	return fmt.Errorf("taskkill: %w: %s", err, out)
}

func (treeTerminator) Survivors(*ProcessHandle) []int {
	return nil
}
