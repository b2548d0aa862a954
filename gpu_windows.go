//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// suppressWindow keeps the query tool from flashing a console window.
func suppressWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
