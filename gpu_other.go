//go:build !windows

package main

import "os/exec"

func suppressWindow(cmd *exec.Cmd) {}
