//go:build linux || darwin
// +build linux darwin

package ffmpeg

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup starts the child as a group leader so terminateGroup can
// reach any helpers it forks.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateGroup sends SIGTERM to the child's process group. exec.Cmd
// follows up with SIGKILL once WaitDelay expires.
func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGTERM); err != nil {
		if err == unix.ESRCH {
			return nil
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	return nil
}

// lowerPriority sets the niceness of pid. Values <= 0 leave it untouched.
func lowerPriority(pid, niceness int) error {
	if niceness <= 0 {
		return nil
	}
	if niceness > 19 {
		niceness = 19
	}
	return unix.Setpriority(unix.PRIO_PROCESS, pid, niceness)
}
