// Package launcher starts approved targets. It is only reachable after a
// policy approval and a durable audit append.
package launcher

import (
	"fmt"
	"os/exec"
)

// LaunchResult identifies the started process.
type LaunchResult struct {
	ProcessID int `json:"process_id"`
}

// Launcher starts processes detached from the daemon.
type Launcher struct{}

// Start launches the target and returns immediately; the child is reaped in
// the background so it never turns into a zombie.
func (Launcher) Start(path string, args []string, workingDirectory string) (LaunchResult, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = workingDirectory

	if err := cmd.Start(); err != nil {
		return LaunchResult{}, fmt.Errorf("start %s: %w", path, err)
	}

	pid := cmd.Process.Pid
	go func() { _ = cmd.Wait() }()

	return LaunchResult{ProcessID: pid}, nil
}
