package main

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// TerminateResult is the structured outcome of a termination attempt. The
// dashboard branches on Success; failures are data, never a dropped
// connection.
type TerminateResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// terminateProcess asks pid to exit gracefully (SIGTERM or the platform
// equivalent).
func terminateProcess(pid int32) TerminateResult {
	p, err := process.NewProcess(pid)
	if err != nil {
		return TerminateResult{Success: false, Message: fmt.Sprintf("process %d: %v", pid, err)}
	}
	if err := p.Terminate(); err != nil {
		return TerminateResult{Success: false, Message: fmt.Sprintf("terminating %d: %v", pid, err)}
	}
	return TerminateResult{Success: true, Message: fmt.Sprintf("Process %d terminated.", pid)}
}
