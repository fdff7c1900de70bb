// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var dataPrefixStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("6")).
	Bold(true)

// display is the host's observer. Channel lines go to out, prefixed
// with a styled marker when out is a terminal so they stand apart from
// the log lines on stderr. The script's stdout is logged at Warn and its
// stderr at Error.
type display struct {
	logger *slog.Logger
	styled bool

	mu  sync.Mutex
	out io.Writer
}

func newDisplay(out io.Writer, styled bool, logger *slog.Logger) *display {
	return &display{out: out, styled: styled, logger: logger}
}

func (d *display) OnData(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.styled {
		fmt.Fprintf(d.out, "%s %s\n", dataPrefixStyle.Render("›"), line)
		return
	}
	fmt.Fprintln(d.out, line)
}

func (d *display) OnOutput(line string) {
	d.logger.Warn("child stdout", "line", line)
}

func (d *display) OnError(line string) {
	d.logger.Error("child stderr", "line", line)
}
