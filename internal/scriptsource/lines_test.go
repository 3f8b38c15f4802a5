// SPDX-License-Identifier: MPL-2.0

package scriptsource

import (
	"strings"
	"testing"
	"testing/iotest"
)

func TestReadLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single line without terminator", "echo hi", "echo hi\n"},
		{"unix", "a\nb\n", "a\nb\n"},
		{"windows", "a\r\nb\r\n", "a\nb\n"},
		{"old mac", "a\rb\r", "a\nb\n"},
		{"mixed", "a\r\nb\rc\nd", "a\nb\nc\nd\n"},
		{"blank lines kept", "\n\n", "\n\n"},
		{"trailing carriage return", "a\r", "a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readLines(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("readLines(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("readLines(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadLines_CarriageReturnAcrossReads(t *testing.T) {
	t.Parallel()

	// One byte per Read forces "\r\n" to straddle scanner refills.
	got, err := readLines(iotest.OneByteReader(strings.NewReader("a\r\nb")))
	if err != nil {
		t.Fatalf("readLines() error: %v", err)
	}
	if got != "a\nb\n" {
		t.Errorf("readLines() = %q, want %q", got, "a\nb\n")
	}
}
