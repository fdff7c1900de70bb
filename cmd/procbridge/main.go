// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/procbridge/lib/clock"
	"github.com/bureau-foundation/procbridge/lib/config"
	"github.com/bureau-foundation/procbridge/lib/process"
	"github.com/bureau-foundation/procbridge/lib/transcript"
	"github.com/bureau-foundation/procbridge/lib/version"
	"github.com/bureau-foundation/procbridge/procbridge"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// options holds the command-line flags. Flags that were set on the
// command line override the config file.
type options struct {
	configPath  string
	interpreter string
	dir         string
	killGrace   time.Duration
	transcript  string
	compression string
	exitOnEOF   bool
	linger      time.Duration
	verbose     bool
}

func run() error {
	var opts options
	flagSet := newFlagSet(&opts)

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "procbridge")
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

	cfg, err := loadConfig(flagSet, &opts)
	if err != nil {
		return err
	}

	logger := newLogger(opts.verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bridgeSession := &session{
		config:    cfg,
		exitOnEOF: opts.exitOnEOF,
		linger:    opts.linger,
		input:     os.Stdin,
		output:    os.Stdout,
		logger:    logger,
		clock:     clock.Real(),
	}
	return bridgeSession.run(ctx)
}

func newFlagSet(opts *options) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("procbridge", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "config file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&opts.interpreter, "interpreter", "", "interpreter that runs the script (default: python3, then python)")
	flagSet.StringVar(&opts.dir, "dir", "", "working directory for the script")
	flagSet.DurationVar(&opts.killGrace, "kill-grace", 2*time.Second, "time between SIGTERM and SIGKILL at shutdown")
	flagSet.StringVar(&opts.transcript, "transcript", "", "record the session to this file")
	flagSet.StringVar(&opts.compression, "transcript-compression", "zstd", "transcript compression: none, zstd, or lz4")
	flagSet.BoolVar(&opts.exitOnEOF, "exit-on-eof", false, "shut down when stdin reaches end of file")
	flagSet.DurationVar(&opts.linger, "linger", time.Second, "with --exit-on-eof, how long to keep reading replies after the last input line is delivered")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "log per-connection events")
	flagSet.BoolP("help", "h", false, "show help")
	return flagSet
}

// loadConfig builds the effective configuration: the config file if one
// was named, else defaults, with the positional script and explicitly
// set flags applied on top.
func loadConfig(flagSet *pflag.FlagSet, opts *options) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case opts.configPath != "":
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case os.Getenv(config.EnvironmentVariable) != "":
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		cfg = config.Default()
	}

	args := flagSet.Args()
	switch {
	case len(args) == 1:
		cfg.Script = args[0]
	case len(args) > 1:
		return nil, fmt.Errorf("unexpected argument: %s", args[1])
	case cfg.Script == "":
		return nil, errors.New("no script given; pass it as an argument or set script in the config file")
	}

	if flagSet.Changed("interpreter") {
		cfg.Interpreter = opts.interpreter
	}
	if flagSet.Changed("dir") {
		cfg.Dir = opts.dir
	}
	if flagSet.Changed("kill-grace") {
		cfg.KillGrace = opts.killGrace.String()
	}
	if flagSet.Changed("transcript") {
		cfg.Transcript.Path = opts.transcript
	}
	if flagSet.Changed("transcript-compression") {
		cfg.Transcript.Compression = opts.compression
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// session is one run of the script under a bridge.
type session struct {
	config    *config.Config
	exitOnEOF bool
	linger    time.Duration
	input     io.Reader
	output    io.Writer
	logger    *slog.Logger

	// clock times the linger and drain waits and stamps transcript
	// records. Nil means clock.Real().
	clock clock.Clock
}

// run starts the bridge, forwards input lines until the session ends,
// then shuts down. The session ends when the child exits, when ctx is
// cancelled, or at the end of input if exitOnEOF is set. A child that
// exits unsuccessfully is reported as an error wrapping its exit status.
func (s *session) run(ctx context.Context) error {
	if s.clock == nil {
		s.clock = clock.Real()
	}
	bridgeConfig, err := s.config.Bridge()
	if err != nil {
		return err
	}

	styled := false
	if file, ok := s.output.(*os.File); ok {
		styled = term.IsTerminal(int(file.Fd()))
	}
	observers := procbridge.MultiObserver{newDisplay(s.output, styled, s.logger)}

	var recorder *transcript.Recorder
	if s.config.Transcript.Path != "" {
		compression, err := s.config.TranscriptCompression()
		if err != nil {
			return err
		}
		recorder, err = transcript.Create(s.config.Transcript.Path, compression, s.clock)
		if err != nil {
			return err
		}
		observers = append(observers, recorder)
		s.logger.Info("recording transcript", "path", s.config.Transcript.Path, "compression", compression)
	}

	bridgeConfig.Observer = observers
	bridgeConfig.Logger = s.logger

	bridge, err := procbridge.Start(ctx, bridgeConfig)
	if err != nil {
		if recorder != nil {
			recorder.Close()
		}
		return err
	}

	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		forwardLines(s.input, bridge, s.logger)
	}()

	var endOfInput <-chan struct{}
	if s.exitOnEOF {
		endOfInput = inputDone
	}

	var sessionErr error
	select {
	case <-bridge.Exited():
		s.awaitChannelDrain(bridge, bridgeConfig.ShutdownTimeout)
		if exitErr := bridge.ExitErr(); exitErr != nil {
			sessionErr = fmt.Errorf("script exited: %w", exitErr)
		}
	case <-endOfInput:
		s.logger.Info("end of input, shutting down", "linger", s.linger)
		s.lingerAfterInput(ctx, bridge)
	case <-ctx.Done():
		s.logger.Info("interrupted, shutting down")
	}

	bridge.Close()
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			s.logger.Error("transcript incomplete", "path", s.config.Transcript.Path, "error", err)
		}
	}
	return sessionErr
}

// lingerAfterInput waits for queued input to reach the script, then
// leaves the linger period for replies. It returns early if the script
// exits or ctx is cancelled.
func (s *session) lingerAfterInput(ctx context.Context, bridge *procbridge.Bridge) {
	select {
	case <-bridge.Connected():
	case <-bridge.Exited():
		return
	case <-ctx.Done():
		return
	}

	select {
	case <-s.clock.After(s.linger):
	case <-bridge.Exited():
		s.awaitChannelDrain(bridge, s.linger)
	case <-ctx.Done():
	}
}

// awaitChannelDrain gives the channel up to timeout to reach end of
// stream after the script has exited, so lines it sent just before
// exiting are still delivered.
func (s *session) awaitChannelDrain(bridge *procbridge.Bridge, timeout time.Duration) {
	select {
	case <-bridge.Connected():
	default:
		return
	}
	select {
	case <-bridge.Disconnected():
	case <-s.clock.After(timeout):
	}
}

// forwardLines sends each line of input to the bridge until end of input
// or a read error.
func forwardLines(input io.Reader, bridge *procbridge.Bridge, logger *slog.Logger) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 4096), procbridge.DefaultMaxLineSize)
	for scanner.Scan() {
		bridge.Send(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("reading input", "error", err)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `procbridge - run a script behind an authenticated loopback channel

USAGE
    procbridge [flags] <script>

The script is started as "<interpreter> <script> <port> <key>". It must
connect to 127.0.0.1:<port> and send the base64-decoded key before any
other bytes. Lines on stdin are sent to the script; lines the script
sends back are printed to stdout.

FLAGS
%s
EXAMPLES
    # Talk to a Python script interactively
    procbridge worker.py

    # Feed a batch of requests and record the session
    procbridge --exit-on-eof --transcript session.tr worker.py < requests.txt
`, flagSet.FlagUsages())
}
