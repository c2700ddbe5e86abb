//go:build linux

// Package procattr configures spawned commands so an entire process tree
// can be signalled at once. Agent CLIs routinely fork helpers that inherit
// the parent's pipes; killing only the direct child leaves those
// descendants holding the pipes open.
package procattr

import (
	"os/exec"
	"syscall"
)

// Set places the command in its own process group. On Linux the child also
// receives SIGTERM if this process dies first, so agent trees cannot
// outlive a crashed parent.
func Set(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
