// Package sim turns validated designs into cycle-accurate simulators.
//
// Generate compiles a module to a self-contained Go source file exposing
// one struct per design: input and output fields, a Reset method, Prop to
// propagate combinational logic and PosedgeClk to advance the clock. The
// package also provides an in-process Simulator implementing the same
// semantics without code generation, which is what tests typically use.
//
package sim

import (
	"bytes"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/tools/imports"

	"github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/internal/cw"
)

// NameStyle selects how design port names map to Go identifiers.
type NameStyle int

const (
	// StyleExported capitalizes the first letter of port and module
	// names so that the generated fields and types are exported.
	StyleExported NameStyle = iota

	// StyleVerbatim uses port and module names unchanged. Names must
	// already be valid Go identifiers.
	StyleVerbatim
)

// Options configures code generation.
type Options struct {
	// Package is the package name of the generated file. It defaults
	// to "sim".
	Package string

	// NameStyle selects the identifier mapping. The default is
	// StyleExported.
	NameStyle NameStyle

	// Trace adds waveform instrumentation to the generated struct:
	// SetTrace registers the design's ports and state with a Tracer
	// such as VCD, UpdateTrace records their values per time stamp,
	// and DumpState prints the state for debugging. The generated
	// file then imports this package for the Tracer interface.
	Trace bool
}

// Generate validates m and writes a Go source file implementing a
// cycle-accurate simulator for it to w. The generated file is
// self-contained (one design per package) and gofmt-clean.
//
// Generation fails if a port or module name cannot be mapped to a legal,
// unique Go identifier under the chosen NameStyle.
//
func Generate(w io.Writer, m *hwgraph.Module, opts Options) error {
	plan, err := hwgraph.Validate(m)
	if err != nil {
		return errors.Wrapf(err, "sim: cannot generate module %q", m.Name())
	}
	if opts.Package == "" {
		opts.Package = "sim"
	}
	var buf bytes.Buffer
	c := &compiler{
		w:    cw.New(&buf, "\t"),
		plan: plan,
		opts: opts,
		pidx: make(map[*hwgraph.Path]int),
	}
	for i, p := range plan.Paths() {
		c.pidx[p] = i
	}
	if err := c.emit(); err != nil {
		return err
	}
	if err := c.w.Err(); err != nil {
		return errors.Wrap(err, "sim: write")
	}
	src, err := imports.Process(m.Name()+".go", buf.Bytes(), nil)
	if err != nil {
		return errors.Wrapf(err, "sim: generated code for module %q does not format", m.Name())
	}
	_, err = w.Write(src)
	return errors.Wrap(err, "sim: write")
}

var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true,
	"continue": true, "default": true, "defer": true, "else": true,
	"fallthrough": true, "for": true, "func": true, "go": true,
	"goto": true, "if": true, "import": true, "interface": true,
	"map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true,
	"var": true,
}

func isIdent(s string) bool {
	if s == "" || goKeywords[s] {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// mangle maps a design name to a Go identifier under the given style.
func mangle(name string, style NameStyle) (string, error) {
	id := name
	if style == StyleExported {
		r, n := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError && n <= 1 {
			return "", errors.Errorf("sim: name %q is not valid UTF-8", name)
		}
		id = string(unicode.ToUpper(r)) + name[n:]
	}
	if !isIdent(id) {
		return "", errors.Errorf("sim: name %q does not map to a legal Go identifier (got %q)", name, id)
	}
	return id, nil
}

// sanitize maps a design name to characters legal inside an identifier,
// for internal state field names.
//
func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
