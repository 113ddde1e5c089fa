// Package sink implements the destinations a style program writes to.
package sink

import (
	"bufio"
	"errors"
	"io"
)

// Sink receives the text a style program writes. Writes are ordered. Close
// is called exactly once, at the end of a run.
type Sink interface {
	Write(text string) error
	Newline() error
	Close() error
}

// ErrClosed is returned by operations on a closed sink.
var ErrClosed = errors.New("sink: closed")

const (
	maxLine = 79 // longest output line before wrapping
	minLine = 3  // earliest column a line may break at
)

// Writer formats output lines the way .bbl files are written. Text is
// buffered until Newline. A line longer than 79 bytes is broken at the last
// whitespace before column 79, or the first one after it, and the remainder
// continues on a new line indented by two spaces. Trailing whitespace is
// trimmed and a line holding only whitespace is dropped.
type Writer struct {
	w      io.WriteCloser
	bw     *bufio.Writer
	line   []byte
	closed bool
}

func NewWriter(w io.WriteCloser) *Writer {
	return &Writer{w: w, bw: bufio.NewWriter(w)}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (w *Writer) Write(text string) error {
	if w.closed {
		return ErrClosed
	}
	w.line = append(w.line, text...)
	for len(w.line) > maxLine {
		k := w.breakPoint()
		if k < 0 {
			break // no whitespace yet; wait for more text
		}
		rest := make([]byte, 0, len(w.line)-k+1)
		rest = append(rest, "  "...)
		rest = append(rest, w.line[k+1:]...)
		w.line = w.line[:k]
		if err := w.flush(); err != nil {
			return err
		}
		w.line = rest
	}
	return nil
}

func (w *Writer) breakPoint() int {
	for i := maxLine; i >= minLine; i-- {
		if isSpace(w.line[i]) {
			return i
		}
	}
	for i := maxLine + 1; i < len(w.line); i++ {
		if isSpace(w.line[i]) {
			return i
		}
	}
	return -1
}

// flush writes the buffered line.
func (w *Writer) flush() error {
	n := len(w.line)
	for n > 0 && isSpace(w.line[n-1]) {
		n--
	}
	if n == 0 && len(w.line) > 0 {
		w.line = w.line[:0]
		return nil
	}
	_, err := w.bw.Write(w.line[:n])
	w.line = w.line[:0]
	if err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Newline ends the current line. With nothing buffered it writes an empty
// line.
func (w *Writer) Newline() error {
	if w.closed {
		return ErrClosed
	}
	return w.flush()
}

// Close writes any unfinished line and closes the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	var err error
	if len(w.line) > 0 {
		err = w.flush()
	}
	return errors.Join(err, w.bw.Flush(), w.w.Close())
}

type tee struct {
	a, b Sink
}

// Tee returns a Sink that duplicates everything to a and b, like the
// terminal echo of a .bbl file.
func Tee(a, b Sink) Sink {
	return &tee{a: a, b: b}
}

func (t *tee) Write(text string) error {
	return errors.Join(t.a.Write(text), t.b.Write(text))
}

func (t *tee) Newline() error {
	return errors.Join(t.a.Newline(), t.b.Newline())
}

func (t *tee) Close() error {
	return errors.Join(t.a.Close(), t.b.Close())
}

type discard struct{}

// Discard returns a Sink that drops all output.
func Discard() Sink { return discard{} }

func (discard) Write(string) error { return nil }
func (discard) Newline() error     { return nil }
func (discard) Close() error       { return nil }

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// NopCloser returns a WriteCloser whose Close does nothing, for writers like
// os.Stdout that outlive a run.
func NopCloser(w io.Writer) io.WriteCloser {
	return nopCloser{w}
}
