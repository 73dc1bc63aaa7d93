package cw_test

import (
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/hwgraph/hwgraph/internal/cw"
)

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("boom")
}

func Test_writer(t *testing.T) {
	var b strings.Builder
	w := cw.New(&b, "\t")
	w.Line("func f() {")
	w.Indent()
	w.Line("x := %d", 42)
	w.Append("return")
	w.Append(" x")
	w.Newline()
	w.Unindent()
	w.Line("}")
	if err := w.Err(); err != nil {
		t.Fatal(err)
	}
	want := "func f() {\n\tx := 42\n\treturn x\n}\n"
	if got := b.String(); got != want {
		t.Errorf("got %q, expected %q", got, want)
	}
}

func Test_sticky_error(t *testing.T) {
	w := cw.New(failWriter{}, "\t")
	w.Line("x")
	err := w.Err()
	if err == nil {
		t.Fatal("expected an error")
	}
	w.Line("y")
	if w.Err() != err {
		t.Error("error is not sticky")
	}
}

func Test_unbalanced_unindent(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	cw.New(&strings.Builder{}, " ").Unindent()
}
