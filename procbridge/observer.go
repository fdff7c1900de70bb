// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

// Observer receives everything the child produces. Each method fires zero
// or more times from a background goroutine. Calls for a single stream
// are serialized, but the three streams are delivered concurrently, so an
// implementation that shares state across methods must synchronize.
//
// Callbacks should return promptly: a blocked OnData stalls the channel's
// read loop, and a blocked OnOutput or OnError stalls the child once its
// pipe buffer fills.
type Observer interface {
	// OnData receives each line the child writes to the socket, without
	// its line terminator.
	OnData(line string)

	// OnOutput receives each line of the child's standard output.
	OnOutput(line string)

	// OnError receives each line of the child's standard error.
	OnError(line string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are
// skipped.
type ObserverFuncs struct {
	Data   func(line string)
	Output func(line string)
	Error  func(line string)
}

func (o ObserverFuncs) OnData(line string) {
	if o.Data != nil {
		o.Data(line)
	}
}

func (o ObserverFuncs) OnOutput(line string) {
	if o.Output != nil {
		o.Output(line)
	}
}

func (o ObserverFuncs) OnError(line string) {
	if o.Error != nil {
		o.Error(line)
	}
}

// MultiObserver delivers each event to every observer in order.
type MultiObserver []Observer

func (m MultiObserver) OnData(line string) {
	for _, observer := range m {
		observer.OnData(line)
	}
}

func (m MultiObserver) OnOutput(line string) {
	for _, observer := range m {
		observer.OnOutput(line)
	}
}

func (m MultiObserver) OnError(line string) {
	for _, observer := range m {
		observer.OnError(line)
	}
}
