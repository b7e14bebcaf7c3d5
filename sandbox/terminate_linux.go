//go:build linux

package sandbox

import (
	"errors"
	"os"
	"os/exec"
	"slices"
	"syscall"

	"github.com/prometheus/procfs"
)

// markerPasses bounds the environment sweep; a tree that keeps forking is
// chased a few rounds, not forever.
const markerPasses = 3

func configureProcAttr(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// groupTerminator kills the process group, every descendant found in /proc,
// and every process still carrying the run's environment marker. The marker
// catches children that called setsid and were reparented before the sweep.
type groupTerminator struct {
	fs    procfs.FS
	hasFS bool
}

func newTerminator() terminator {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return groupTerminator{}
	}
	return groupTerminator{fs: fs, hasFS: true}
}

func (t groupTerminator) Terminate(h *ProcessHandle) error {
	if h == nil || h.Pid <= 0 {
		return nil
	}

	// Snapshot before the kill; afterwards orphans are reparented and the tree is lost.
	// Once reaped the pid may be reused, so only the marker identifies the tree.
	var descendants []int
	if !h.reaped {
		descendants = t.descendants(h.Pid)
	}

	err := syscall.Kill(-h.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		err = nil
	}

	for _, pid := range descendants {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}

	for range markerPasses {
		if t.killMarked(h.marker) == 0 {
			break
		}
	}

	return err
}

func (t groupTerminator) Survivors(h *ProcessHandle) []int {
	if !t.hasFS || h == nil {
		return nil
	}
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil
	}
	var alive []int
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil || stat.State == "Z" {
			continue
		}
		if stat.PGRP == h.Pid || stat.PID == h.Pid || t.carries(p, h.marker) {
			alive = append(alive, stat.PID)
		}
	}
	return alive
}

// killMarked signals every live process whose environment holds marker and
// reports how many it hit.
func (t groupTerminator) killMarked(marker string) int {
	if !t.hasFS || marker == "" {
		return 0
	}
	procs, err := t.fs.AllProcs()
	if err != nil {
		return 0
	}
	self := os.Getpid()
	killed := 0
	for _, p := range procs {
		if p.PID == self || !t.carries(p, marker) {
			continue
		}
		if stat, err := p.Stat(); err != nil || stat.State == "Z" {
			continue
		}
		if syscall.Kill(p.PID, syscall.SIGKILL) == nil {
			killed++
		}
	}
	return killed
}

func (groupTerminator) carries(p procfs.Proc, marker string) bool {
	if marker == "" {
		return false
	}
	env, err := p.Environ()
	if err != nil {
		return false
	}
	return slices.Contains(env, marker)
}

func (t groupTerminator) descendants(root int) []int {
	if !t.hasFS {
		return nil
	}
	procs, err := t.fs.AllProcs()
	if err != nil {
		return nil
	}

	children := make(map[int][]int)
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			continue
		}
		children[stat.PPID] = append(children[stat.PPID], stat.PID)
	}

	var out []int
	queue := []int{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}
