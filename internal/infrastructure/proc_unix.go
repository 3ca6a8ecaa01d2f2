//go:build !windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the child in its own process group so that helper
// processes it spawns can be killed along with it
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
}

// killProcessTree kills the child's whole process group
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
