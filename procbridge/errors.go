// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"errors"
	"fmt"
)

// ErrTransportClosed is the recorded cause when the established channel
// ends because the peer closed it or an I/O operation failed. It is
// logged, never returned to Send callers.
var ErrTransportClosed = errors.New("procbridge: transport closed")

// LaunchError reports that the child process could not be started. It
// is the only failure Start surfaces after the configuration has been
// validated.
type LaunchError struct {
	// Interpreter is the executable that was requested or resolved.
	Interpreter string

	// Script is the script path passed as the first argument.
	Script string

	// Err is the underlying failure.
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("procbridge: launching %s %s: %v", e.Interpreter, e.Script, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }
