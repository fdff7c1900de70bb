// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/procbridge/lib/clock"
)

// defaultInterpreters are tried in order when Config.Interpreter is empty.
var defaultInterpreters = []string{"python3", "python"}

// resolveInterpreter returns the absolute path of the executable that
// will run the script.
func resolveInterpreter(name string) (string, error) {
	if name != "" {
		return exec.LookPath(name)
	}
	for _, candidate := range defaultInterpreters {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no interpreter found on PATH (tried %s)", strings.Join(defaultInterpreters, ", "))
}

// childProcess is the launched interpreter. Its stdout and stderr are
// drained into the observer for the life of the process, independent of
// the socket channel.
type childProcess struct {
	command *exec.Cmd
	stdin   io.WriteCloser
	stdout  *lineWriter
	stderr  *lineWriter
	logger  *slog.Logger

	// exited is closed once Wait has returned and trailing partial
	// lines have been flushed. waitError is written before the close.
	exited    chan struct{}
	waitError error
}

// launchProcess starts interpreter with the script, port, and encoded
// key as positional arguments. The child gets its own process group so
// that termination reaches anything it spawns.
func launchProcess(config Config, interpreter string, port int, encodedKey string, logger *slog.Logger) (*childProcess, error) {
	command := exec.Command(interpreter, config.Script, strconv.Itoa(port), encodedKey)
	command.Dir = config.Dir
	if len(config.Env) > 0 {
		command.Env = append(os.Environ(), config.Env...)
	}
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	command.WaitDelay = processWaitDelay

	process := &childProcess{
		command: command,
		stdout:  newLineWriter(config.MaxLineSize, config.Observer.OnOutput),
		stderr:  newLineWriter(config.MaxLineSize, config.Observer.OnError),
		exited:  make(chan struct{}),
	}
	command.Stdout = process.stdout
	command.Stderr = process.stderr

	stdin, err := command.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	process.stdin = stdin

	if err := command.Start(); err != nil {
		stdin.Close()
		return nil, err
	}
	process.logger = logger.With("pid", command.Process.Pid)

	go process.wait()
	return process, nil
}

func (p *childProcess) wait() {
	err := p.command.Wait()
	p.stdout.Flush()
	p.stderr.Flush()
	p.waitError = err
	close(p.exited)

	if err != nil {
		p.logger.Debug("child process exited", "error", err)
	} else {
		p.logger.Debug("child process exited")
	}
}

// pid returns the child's process ID.
func (p *childProcess) pid() int { return p.command.Process.Pid }

// signal delivers sig to the child's process group, falling back to the
// child alone if the group is already gone.
func (p *childProcess) signal(sig unix.Signal) {
	if err := unix.Kill(-p.pid(), sig); err == nil {
		return
	}
	if err := p.command.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("signalling child failed", "signal", sig, "error", err)
	}
}

// terminate closes the child's stdin and stops it. With a positive grace
// the group gets SIGTERM first and SIGKILL only if it is still running
// when the grace period ends. Waits at most timeout for the exit after
// SIGKILL.
func (p *childProcess) terminate(grace, timeout time.Duration, clk clock.Clock) {
	p.stdin.Close()

	select {
	case <-p.exited:
		return
	default:
	}

	if grace > 0 {
		p.signal(unix.SIGTERM)
		select {
		case <-p.exited:
			return
		case <-clk.After(grace):
			p.logger.Info("child did not exit within grace period, killing", "grace", grace)
		}
	}

	p.signal(unix.SIGKILL)
	select {
	case <-p.exited:
	case <-clk.After(timeout):
		p.logger.Warn("child did not exit after SIGKILL", "timeout", timeout)
	}
}
