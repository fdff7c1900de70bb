// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

type sampleRecord struct {
	Time   time.Time `cbor:"time"`
	Stream string    `cbor:"stream"`
	Line   string    `cbor:"line,omitempty"`
}

func TestMarshalUnmarshalTime(t *testing.T) {
	original := sampleRecord{
		Time:   time.Date(2026, 3, 14, 15, 9, 26, 535897932, time.UTC),
		Stream: "data",
		Line:   "hello",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded sampleRecord
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !decoded.Time.Equal(original.Time) {
		t.Errorf("Time = %v, want %v (nanoseconds must survive)", decoded.Time, original.Time)
	}
	if decoded.Stream != original.Stream || decoded.Line != original.Line {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zebra": 1, "apple": 2, "mango": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestStreamSequence(t *testing.T) {
	records := []sampleRecord{
		{Stream: "stdout", Line: "one"},
		{Stream: "stderr", Line: "two"},
		{Stream: "data"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range records {
		var got sampleRecord
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode record %d: %v", index, err)
		}
		if got.Stream != want.Stream || got.Line != want.Line {
			t.Errorf("record %d = %+v, want %+v", index, got, want)
		}
	}
	var extra sampleRecord
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Fatalf("Decode past end = %v, want io.EOF", err)
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(sampleRecord{Stream: "data", Line: "x"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if fields["line"] != "x" {
		t.Errorf("line = %v", fields["line"])
	}
}

func TestDiagnoseFirst(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	encoder.Encode(sampleRecord{Stream: "stdout", Line: "first"})
	encoder.Encode(sampleRecord{Stream: "stderr", Line: "second"})

	notation, rest, err := DiagnoseFirst(buffer.Bytes())
	if err != nil {
		t.Fatalf("DiagnoseFirst: %v", err)
	}
	if !strings.Contains(notation, `"first"`) {
		t.Errorf("notation %q does not contain the first line", notation)
	}
	notation, rest, err = DiagnoseFirst(rest)
	if err != nil {
		t.Fatalf("DiagnoseFirst (second): %v", err)
	}
	if !strings.Contains(notation, `"second"`) || len(rest) != 0 {
		t.Errorf("second item = %q with %d bytes left", notation, len(rest))
	}
}
