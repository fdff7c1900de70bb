// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package procbridge

import (
	"slices"
	"testing"
)

func TestObserverFuncs_NilFieldsSkipped(t *testing.T) {
	var observer ObserverFuncs
	observer.OnData("x")
	observer.OnOutput("x")
	observer.OnError("x")
}

func TestObserverFuncs_Routes(t *testing.T) {
	var events []string
	observer := ObserverFuncs{
		Data:   func(line string) { events = append(events, "data:"+line) },
		Output: func(line string) { events = append(events, "out:"+line) },
		Error:  func(line string) { events = append(events, "err:"+line) },
	}
	observer.OnData("a")
	observer.OnOutput("b")
	observer.OnError("c")

	if want := []string{"data:a", "out:b", "err:c"}; !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}

func TestMultiObserver_DeliversInOrder(t *testing.T) {
	var events []string
	record := func(name string) Observer {
		return ObserverFuncs{
			Data:  func(line string) { events = append(events, name+":"+line) },
			Error: func(line string) { events = append(events, name+"!"+line) },
		}
	}
	observer := MultiObserver{record("first"), record("second")}

	observer.OnData("line")
	observer.OnOutput("ignored")
	observer.OnError("oops")

	want := []string{"first:line", "second:line", "first!oops", "second!oops"}
	if !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
}
