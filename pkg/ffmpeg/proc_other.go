//go:build !linux && !darwin
// +build !linux,!darwin

package ffmpeg

import "os/exec"

// setProcessGroup is a no-op on platforms without POSIX process groups.
func setProcessGroup(cmd *exec.Cmd) {}

// terminateGroup kills the child directly.
func terminateGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

// lowerPriority is not supported here; the encoder runs at normal priority.
func lowerPriority(pid, niceness int) error {
	return nil
}
