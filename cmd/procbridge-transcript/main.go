// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/procbridge/lib/codec"
	"github.com/bureau-foundation/procbridge/lib/process"
	"github.com/bureau-foundation/procbridge/lib/transcript"
	"github.com/bureau-foundation/procbridge/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

// dumpOptions selects the output format and record filter.
type dumpOptions struct {
	json     bool
	diagnose bool
	streams  []string
}

func run() error {
	var opts dumpOptions
	flagSet := pflag.NewFlagSet("procbridge-transcript", pflag.ContinueOnError)
	flagSet.BoolVar(&opts.json, "json", false, "print records as JSON Lines")
	flagSet.BoolVar(&opts.diagnose, "diagnose", false, "print each record in CBOR diagnostic notation")
	flagSet.StringSliceVar(&opts.streams, "stream", nil, "only print these streams (data, stdout, stderr)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print(os.Stdout, "procbridge-transcript")
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
	if flagSet.NArg() != 1 {
		printHelp(flagSet)
		return errors.New("expected exactly one transcript path")
	}
	if opts.json && opts.diagnose {
		return errors.New("--json and --diagnose are mutually exclusive")
	}

	reader, err := transcript.Open(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer reader.Close()

	output := bufio.NewWriter(os.Stdout)
	defer output.Flush()
	return dump(reader, output, opts)
}

// jsonRecord is the --json output form of a transcript record.
type jsonRecord struct {
	Time   time.Time `json:"time"`
	Stream string    `json:"stream"`
	Line   string    `json:"line"`
}

// dump writes every record from reader that passes the stream filter.
func dump(reader *transcript.Reader, output io.Writer, opts dumpOptions) error {
	include, err := streamFilter(opts.streams)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(output)

	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !include(record.Stream) {
			continue
		}

		switch {
		case opts.json:
			err = encoder.Encode(jsonRecord{Time: record.Time, Stream: string(record.Stream), Line: record.Line})
		case opts.diagnose:
			err = writeDiagnostic(output, record)
		default:
			_, err = fmt.Fprintln(output, record)
		}
		if err != nil {
			return err
		}
	}
}

// writeDiagnostic re-encodes record and prints its CBOR diagnostic
// notation.
func writeDiagnostic(output io.Writer, record transcript.Record) error {
	encoded, err := codec.Marshal(record)
	if err != nil {
		return err
	}
	notation, _, err := codec.DiagnoseFirst(encoded)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, notation)
	return err
}

// streamFilter returns a predicate accepting the named streams, or every
// stream when names is empty.
func streamFilter(names []string) (func(transcript.Stream) bool, error) {
	if len(names) == 0 {
		return func(transcript.Stream) bool { return true }, nil
	}
	allowed := make(map[transcript.Stream]bool, len(names))
	for _, name := range names {
		stream := transcript.Stream(name)
		if !stream.Valid() {
			return nil, fmt.Errorf("unknown stream %q (want data, stdout, or stderr)", name)
		}
		allowed[stream] = true
	}
	return func(stream transcript.Stream) bool { return allowed[stream] }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `procbridge-transcript - print a recorded bridge session

USAGE
    procbridge-transcript [flags] <transcript>

FLAGS
%s
EXAMPLES
    # Only what the script sent over the channel, as JSON
    procbridge-transcript --stream data --json session.tr
`, flagSet.FlagUsages())
}
