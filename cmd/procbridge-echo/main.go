// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/procbridge/lib/peer"
	"github.com/bureau-foundation/procbridge/lib/process"
	"github.com/bureau-foundation/procbridge/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var prefix string
	var verbose bool

	flagSet := pflag.NewFlagSet("procbridge-echo", pflag.ContinueOnError)
	flagSet.StringVar(&prefix, "prefix", "", "text prepended to every echoed line")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log each received line to stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "procbridge-echo")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := peer.FromArgs(ctx, flagSet.Args())
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("connected to bridge", "address", conn.NetConn().RemoteAddr().String())

	// Closing the connection unblocks ReadLine on interrupt.
	stopOnSignal := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopOnSignal()

	return echo(conn, prefix, logger)
}

// lineConn is the part of peer.Conn that echo uses.
type lineConn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
}

// echo writes every line read from conn back to it with prefix
// prepended. It returns nil when the bridge closes the connection.
func echo(conn lineConn, prefix string, logger *slog.Logger) error {
	for {
		line, err := conn.ReadLine()
		if errors.Is(err, io.EOF) {
			logger.Info("bridge closed the connection")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading from bridge: %w", err)
		}
		logger.Info("received line", "line", line)
		if err := conn.WriteLine(prefix + line); err != nil {
			return fmt.Errorf("writing to bridge: %w", err)
		}
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `procbridge-echo - echo child for a process bridge

USAGE
    procbridge-echo [flags] <port> <key>

The port and base64 key are supplied by the bridge. Any leading
arguments (such as a script path) are ignored.

FLAGS
%s`, flagSet.FlagUsages())
}
