// Package cw implements a small indentation-aware code writer shared by
// the code generation backends. Write errors are sticky: after the first
// failure every call is a no-op and Err reports the original error.
//
package cw

import (
	"fmt"
	"io"
	"strings"
)

// A Writer emits indented lines of source code to an underlying io.Writer.
type Writer struct {
	w      io.Writer
	indent string
	depth  int
	midrow bool
	err    error
}

// New returns a Writer emitting to w, indenting nested blocks with the
// given unit (typically "\t" or four spaces).
//
func New(w io.Writer, indent string) *Writer {
	return &Writer{w: w, indent: indent}
}

// Err returns the first write error encountered, or nil.
func (w *Writer) Err() error { return w.err }

// Indent increases the indentation depth by one.
func (w *Writer) Indent() { w.depth++ }

// Unindent decreases the indentation depth by one. It panics if the depth
// would become negative.
//
func (w *Writer) Unindent() {
	if w.depth == 0 {
		panic("cw: unbalanced Unindent")
	}
	w.depth--
}

func (w *Writer) write(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

// Line emits a full line at the current indentation: the formatted text
// followed by a newline.
//
func (w *Writer) Line(format string, args ...interface{}) {
	w.Append(format, args...)
	w.Newline()
}

// Append emits formatted text on the current line, indenting first if the
// line is empty.
//
func (w *Writer) Append(format string, args ...interface{}) {
	if !w.midrow {
		w.write(strings.Repeat(w.indent, w.depth))
		w.midrow = true
	}
	w.write(fmt.Sprintf(format, args...))
}

// Newline terminates the current line. On an empty line it emits a blank
// line without indentation.
//
func (w *Writer) Newline() {
	w.write("\n")
	w.midrow = false
}
