// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Fatal writes "error: err" to stderr and exits with ExitCode(err). Use
// it in main() for errors from run() where the structured logger may
// not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitCode(err))
}

// ExitCode maps err to a process exit status: 0 for nil, the child's
// status when err wraps an *exec.ExitError for a normal exit, 128 plus
// the signal number for a child killed by a signal (the shell
// convention), and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitError *exec.ExitError
	if !errors.As(err, &exitError) {
		return 1
	}
	if code := exitError.ExitCode(); code > 0 {
		return code
	}
	if status, ok := exitError.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return 1
}
