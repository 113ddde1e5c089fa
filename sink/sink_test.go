package sink

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type buffer struct {
	bytes.Buffer
	closes int
}

func (b *buffer) Close() error {
	b.closes++
	return nil
}

// op is either text to write or "\n" for Newline.
func run(t *testing.T, s Sink, ops ...string) {
	t.Helper()
	for _, op := range ops {
		var err error
		if op == "\n" {
			err = s.Newline()
		} else {
			err = s.Write(op)
		}
		if err != nil {
			t.Fatalf("op %q: %s", op, err)
		}
	}
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestWriter(t *testing.T) {
	tests := []struct {
		name string
		ops  []string
		want string
	}{
		{"lines", []string{"hello", "\n", "wor", "ld", "\n"}, "hello\nworld\n"},
		{"empty line", []string{"\n", "\n"}, "\n\n"},
		{"whitespace only line dropped", []string{"a", "\n", "   ", "\n", "b", "\n"}, "a\nb\n"},
		{"trailing whitespace trimmed", []string{"a \t ", "\n"}, "a\n"},
		{"wrap at last space", []string{strings.Repeat("word ", 20), "\n"},
			words(16) + "\n  " + words(4) + "\n"},
		{"unbreakable", []string{strings.Repeat("x", 100), "\n"}, strings.Repeat("x", 100) + "\n"},
		{"break after column", []string{strings.Repeat("x", 90) + " y", "\n"},
			strings.Repeat("x", 90) + "\n  y\n"},
		{"pending line flushed on close", []string{"tail"}, "tail\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &buffer{}
			w := NewWriter(b)
			run(t, w, tt.ops...)
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error: %s", err)
			}
			if diff := cmp.Diff(tt.want, b.String()); diff != "" {
				t.Errorf("Writer output mismatch (-want +got):\n%s", diff)
			}
			if b.closes != 1 {
				t.Errorf("underlying Close() called %d times; want 1", b.closes)
			}
		})
	}
}

func TestWriter_closed(t *testing.T) {
	w := NewWriter(&buffer{})
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %s", err)
	}
	for name, err := range map[string]error{
		"Write":   w.Write("x"),
		"Newline": w.Newline(),
		"Close":   w.Close(),
	} {
		if !errors.Is(err, ErrClosed) {
			t.Errorf("%s() after Close = %v; want ErrClosed", name, err)
		}
	}
}

var errDiskFull = errors.New("disk full")

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write([]byte) (int, error) {
	f.writes++
	return 0, errDiskFull
}

func (f *failingWriter) Close() error { return nil }

func TestWriter_writeError(t *testing.T) {
	f := &failingWriter{}
	w := NewWriter(f)
	// Longer than the bufio buffer, so the line goes straight to f.
	if err := w.Write(strings.Repeat("x", 5000)); err != nil {
		t.Fatalf("Write() error: %s", err)
	}
	if err := w.Newline(); !errors.Is(err, errDiskFull) {
		t.Errorf("Newline() = %v; want %v", err, errDiskFull)
	}
	if f.writes == 0 {
		t.Errorf("underlying writer never called")
	}
	if err := w.Close(); !errors.Is(err, errDiskFull) {
		t.Errorf("Close() = %v; want %v", err, errDiskFull)
	}
}

func TestTee(t *testing.T) {
	a, b := &buffer{}, &buffer{}
	s := Tee(NewWriter(a), NewWriter(b))
	run(t, s, "one", "\n", "two", "\n")
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %s", err)
	}
	for _, buf := range []*buffer{a, b} {
		if diff := cmp.Diff("one\ntwo\n", buf.String()); diff != "" {
			t.Errorf("Tee output mismatch (-want +got):\n%s", diff)
		}
		if buf.closes != 1 {
			t.Errorf("Close() called %d times; want 1", buf.closes)
		}
	}
}

func TestDiscard(t *testing.T) {
	s := Discard()
	run(t, s, "text", "\n")
	if err := s.Close(); err != nil {
		t.Errorf("Close() error: %s", err)
	}
}

func TestNopCloser(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(NopCloser(&buf))
	run(t, w, "x", "\n")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %s", err)
	}
	if got := buf.String(); got != "x\n" {
		t.Errorf("output = %q; want %q", got, "x\n")
	}
}
