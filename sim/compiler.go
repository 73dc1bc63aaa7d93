package sim

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/internal/cw"
)

// reserved method names of the generated struct; port names may not
// mangle onto them.
var reserved = map[string]bool{
	"Reset":       true,
	"Prop":        true,
	"PosedgeClk":  true,
	"Step":        true,
	"SetTrace":    true,
	"UpdateTrace": true,
	"DumpState":   true,
}

type compiler struct {
	w    *cw.Writer
	plan *hwgraph.Plan
	opts Options

	typ  string
	in   map[string]string // port name -> field name
	out  map[string]string
	pidx map[*hwgraph.Path]int
	used []bool

	needMux bool
	needB2u bool
}

func (c *compiler) emit() error {
	if err := c.names(); err != nil {
		return err
	}
	c.markUsed()

	c.w.Line("// Code generated by hwgen. DO NOT EDIT.")
	c.w.Newline()
	c.w.Line("package %s", c.opts.Package)
	c.w.Newline()
	if c.opts.Trace {
		c.w.Line("import (")
		c.w.Indent()
		c.w.Line("hwsim %q", "github.com/hwgraph/hwgraph/sim")
		c.w.Unindent()
		c.w.Line(")")
		c.w.Newline()
	}
	c.emitStruct()
	c.emitCtor()
	c.emitReset()
	c.emitProp()
	c.emitPosedgeClk()
	c.emitStep()
	if c.opts.Trace {
		refs := c.emitSetTrace()
		c.emitUpdateTrace(refs)
		c.emitDumpState()
	}
	c.emitHelpers()
	return nil
}

// names maps the module and port names to Go identifiers and rejects
// collisions.
func (c *compiler) names() error {
	root := c.plan.Root()
	typ, err := mangle(root.Name(), c.opts.NameStyle)
	if err != nil {
		return err
	}
	if typ == "mux" || typ == "b2u" {
		return errors.Errorf("sim: module name %q collides with a generated helper", root.Name())
	}
	c.typ = typ
	c.in = make(map[string]string)
	c.out = make(map[string]string)
	taken := make(map[string]string)
	if c.opts.Trace {
		taken["trace"] = "the trace state field"
		taken["traceIDs"] = "the trace state field"
	}
	claim := func(port, field, what string) error {
		if reserved[field] {
			return errors.Errorf("sim: %s %q maps to reserved identifier %q", what, port, field)
		}
		if prev, ok := taken[field]; ok {
			return errors.Errorf("sim: %s %q and %s map to the same identifier %q", what, port, prev, field)
		}
		taken[field] = fmt.Sprintf("%s %q", what, port)
		return nil
	}
	for _, name := range root.InputNames() {
		field, err := mangle(name, c.opts.NameStyle)
		if err != nil {
			return err
		}
		if err := claim(name, field, "input"); err != nil {
			return err
		}
		c.in[name] = field
	}
	for _, name := range root.OutputNames() {
		field, err := mangle(name, c.opts.NameStyle)
		if err != nil {
			return err
		}
		if err := claim(name, field, "output"); err != nil {
			return err
		}
		c.out[name] = field
	}
	return nil
}

func (c *compiler) nidx(p *hwgraph.Path, s *hwgraph.Signal) int {
	return c.plan.NodeIndex(hwgraph.Node{Path: p, Sig: s})
}

// deps returns the node indexes n's expression refers to.
func (c *compiler) deps(n hwgraph.Node) []int {
	sig := n.Sig
	switch sig.Kind() {
	case hwgraph.KindInput:
		if parent := n.Path.Parent(); parent != nil {
			return []int{c.nidx(parent, n.Path.Inst().Driven(sig.Name()))}
		}
		return nil
	case hwgraph.KindInstOut:
		child := n.Path.Child(sig.Inst())
		return []int{c.nidx(child, sig.Inst().Target().OutputSignal(sig.Name()))}
	}
	ops := sig.Operands()
	deps := make([]int, len(ops))
	for i, d := range ops {
		deps[i] = c.nidx(n.Path, d)
	}
	return deps
}

type sinkRef struct {
	field string
	idx   int
}

// sinks lists the struct fields Prop must store: output values, register
// next values and memory port operands.
//
func (c *compiler) sinks() []sinkRef {
	var out []sinkRef
	root := c.plan.Root()
	rp := c.plan.RootPath()
	for _, name := range root.OutputNames() {
		out = append(out, sinkRef{c.out[name], c.nidx(rp, root.OutputSignal(name))})
	}
	for _, path := range c.plan.Paths() {
		for _, r := range path.Module().Registers() {
			out = append(out, sinkRef{c.nxtField(path, r), c.nidx(path, r.Next())})
		}
		for _, mem := range path.Module().Mems() {
			for i, port := range mem.ReadPorts() {
				out = append(out, sinkRef{c.portField("ra", path, mem, i), c.nidx(path, port.Addr)})
				out = append(out, sinkRef{c.portField("re", path, mem, i), c.nidx(path, port.Enable)})
			}
			for i, port := range mem.WritePorts() {
				out = append(out, sinkRef{c.portField("wa", path, mem, i), c.nidx(path, port.Addr)})
				out = append(out, sinkRef{c.portField("wd", path, mem, i), c.nidx(path, port.Data)})
				out = append(out, sinkRef{c.portField("we", path, mem, i), c.nidx(path, port.Enable)})
			}
		}
	}
	return out
}

// markUsed flags the nodes whose local must be emitted: anything a stored
// sink depends on. Output drivers of nested instances are scheduled by
// the plan but may have no reader; emitting locals for those would not
// compile.
//
func (c *compiler) markUsed() {
	nodes := c.plan.Nodes()
	c.used = make([]bool, len(nodes))
	for _, s := range c.sinks() {
		c.used[s.idx] = true
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if !c.used[i] {
			continue
		}
		for _, d := range c.deps(nodes[i]) {
			c.used[d] = true
		}
	}
}

func (c *compiler) regField(p *hwgraph.Path, r *hwgraph.Register) string {
	return fmt.Sprintf("reg_p%d_%s", c.pidx[p], sanitize(r.Name()))
}

func (c *compiler) nxtField(p *hwgraph.Path, r *hwgraph.Register) string {
	return fmt.Sprintf("nxt_p%d_%s", c.pidx[p], sanitize(r.Name()))
}

func (c *compiler) memField(p *hwgraph.Path, m *hwgraph.Mem) string {
	return fmt.Sprintf("mem_p%d_%s", c.pidx[p], sanitize(m.Name()))
}

func (c *compiler) portField(kind string, p *hwgraph.Path, m *hwgraph.Mem, i int) string {
	return fmt.Sprintf("%s_p%d_%s_%d", kind, c.pidx[p], sanitize(m.Name()), i)
}

func (c *compiler) emitStruct() {
	root := c.plan.Root()
	c.w.Line("// %s is a cycle-accurate simulator for the %q design.", c.typ, root.Name())
	c.w.Line("// Set the input fields, call Prop, then read the output fields; call")
	c.w.Line("// PosedgeClk to advance the clock, or Step to run one full cycle.")
	c.w.Line("type %s struct {", c.typ)
	c.w.Indent()
	for _, name := range root.InputNames() {
		c.w.Line("%s uint64 // input %q, %d bit(s)", c.in[name], name, root.InputSignal(name).Width())
	}
	for _, name := range root.OutputNames() {
		c.w.Line("%s uint64 // output %q, %d bit(s)", c.out[name], name, root.OutputSignal(name).Width())
	}
	for _, path := range c.plan.Paths() {
		m := path.Module()
		if len(m.Registers()) == 0 && len(m.Mems()) == 0 {
			continue
		}
		c.w.Newline()
		c.w.Line("// state of %s", path.Name())
		for _, r := range m.Registers() {
			c.w.Line("%s uint64", c.regField(path, r))
			c.w.Line("%s uint64", c.nxtField(path, r))
		}
		for _, mem := range m.Mems() {
			c.w.Line("%s [%d]uint64", c.memField(path, mem), mem.Depth())
			for i := range mem.ReadPorts() {
				c.w.Line("%s uint64", c.portField("rd", path, mem, i))
				c.w.Line("%s uint64", c.portField("ra", path, mem, i))
				c.w.Line("%s uint64", c.portField("re", path, mem, i))
			}
			for i := range mem.WritePorts() {
				c.w.Line("%s uint64", c.portField("wa", path, mem, i))
				c.w.Line("%s uint64", c.portField("wd", path, mem, i))
				c.w.Line("%s uint64", c.portField("we", path, mem, i))
			}
		}
	}
	if c.opts.Trace {
		c.w.Newline()
		c.w.Line("trace hwsim.Tracer")
		c.w.Line("traceIDs []hwsim.TraceID")
	}
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitCtor() {
	c.w.Line("// New%s returns a %s in its reset state.", c.typ, c.typ)
	c.w.Line("func New%s() *%s {", c.typ, c.typ)
	c.w.Indent()
	c.w.Line("c := &%s{}", c.typ)
	c.w.Line("c.Reset()")
	c.w.Line("return c")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitReset() {
	c.w.Line("// Reset restores every register to its default value and every memory")
	c.w.Line("// to its initial contents, then propagates.")
	c.w.Line("func (c *%s) Reset() {", c.typ)
	c.w.Indent()
	for _, path := range c.plan.Paths() {
		for _, r := range path.Module().Registers() {
			c.w.Line("c.%s = %#x", c.regField(path, r), r.Default())
		}
		for _, mem := range path.Module().Mems() {
			if init := mem.Initial(); init != nil {
				c.w.Line("c.%s = [%d]uint64{", c.memField(path, mem), mem.Depth())
				c.w.Indent()
				for i := 0; i < len(init); i += 8 {
					end := i + 8
					if end > len(init) {
						end = len(init)
					}
					for _, v := range init[i:end] {
						c.w.Append("%#x, ", v)
					}
					c.w.Newline()
				}
				c.w.Unindent()
				c.w.Line("}")
			} else {
				c.w.Line("c.%s = [%d]uint64{}", c.memField(path, mem), mem.Depth())
			}
			for i := range mem.ReadPorts() {
				c.w.Line("c.%s = 0", c.portField("rd", path, mem, i))
			}
		}
	}
	c.w.Line("c.Prop()")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitProp() {
	c.w.Line("// Prop propagates the current inputs and state through the")
	c.w.Line("// combinational graph.")
	c.w.Line("func (c *%s) Prop() {", c.typ)
	c.w.Indent()
	for i, n := range c.plan.Nodes() {
		if !c.used[i] {
			continue
		}
		c.w.Line("t%d := %s", i, c.expr(n))
	}
	for _, s := range c.sinks() {
		c.w.Line("c.%s = t%d", s.field, s.idx)
	}
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitPosedgeClk() {
	c.w.Line("// PosedgeClk advances the design by one clock edge using the values of")
	c.w.Line("// the last Prop. Read ports sample before any write so that same-address")
	c.w.Line("// collisions observe the old contents; writes apply in declaration order.")
	c.w.Line("func (c *%s) PosedgeClk() {", c.typ)
	c.w.Indent()
	for _, path := range c.plan.Paths() {
		for _, mem := range path.Module().Mems() {
			for i := range mem.ReadPorts() {
				c.w.Line("if c.%s != 0 {", c.portField("re", path, mem, i))
				c.w.Indent()
				c.w.Line("c.%s = c.%s[c.%s]", c.portField("rd", path, mem, i),
					c.memField(path, mem), c.portField("ra", path, mem, i))
				c.w.Unindent()
				c.w.Line("}")
			}
			for i := range mem.WritePorts() {
				c.w.Line("if c.%s != 0 {", c.portField("we", path, mem, i))
				c.w.Indent()
				c.w.Line("c.%s[c.%s] = c.%s", c.memField(path, mem),
					c.portField("wa", path, mem, i), c.portField("wd", path, mem, i))
				c.w.Unindent()
				c.w.Line("}")
			}
		}
		for _, r := range path.Module().Registers() {
			c.w.Line("c.%s = c.%s", c.regField(path, r), c.nxtField(path, r))
		}
	}
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitStep() {
	c.w.Line("// Step runs one full cycle: propagate, clock, propagate.")
	c.w.Line("func (c *%s) Step() {", c.typ)
	c.w.Indent()
	c.w.Line("c.Prop()")
	c.w.Line("c.PosedgeClk()")
	c.w.Line("c.Prop()")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

// retErr emits a statement checking the error of the given call.
func (c *compiler) retErr(format string, args ...interface{}) {
	c.w.Line("if err := "+format+"; err != nil {", args...)
	c.w.Indent()
	c.w.Line("return err")
	c.w.Unindent()
	c.w.Line("}")
}

// traceRef is one traced signal: its registration order matches the
// generated traceIDs slice, value is the expression reading it.
type traceRef struct {
	value string
}

// emitSetTrace emits the method registering the design hierarchy with a
// tracer and returns the traced signals in registration order.
func (c *compiler) emitSetTrace() []traceRef {
	var refs []traceRef
	c.w.Line("// SetTrace registers the design's ports and state with t, one scope per")
	c.w.Line("// instance. UpdateTrace records their values from then on.")
	c.w.Line("func (c *%s) SetTrace(t hwsim.Tracer) error {", c.typ)
	c.w.Indent()
	c.w.Line("c.trace = t")
	c.w.Line("c.traceIDs = c.traceIDs[:0]")
	c.w.Line("add := func(name string, width int) error {")
	c.w.Indent()
	c.w.Line("id, err := t.AddSignal(name, width)")
	c.w.Line("if err != nil {")
	c.w.Indent()
	c.w.Line("return err")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Line("c.traceIDs = append(c.traceIDs, id)")
	c.w.Line("return nil")
	c.w.Unindent()
	c.w.Line("}")
	add := func(name string, width int, value string) {
		c.retErr("add(%q, %d)", name, width)
		refs = append(refs, traceRef{value: value})
	}
	var scope func(path *hwgraph.Path, name string)
	scope = func(path *hwgraph.Path, name string) {
		c.retErr("t.PushModule(%q)", name)
		m := path.Module()
		if path.Parent() == nil {
			for _, n := range m.InputNames() {
				s := m.InputSignal(n)
				add(n, s.Width(), masked("c."+c.in[n], s.Width()))
			}
			for _, n := range m.OutputNames() {
				add(n, m.OutputSignal(n).Width(), "c."+c.out[n])
			}
		}
		for _, r := range m.Registers() {
			add(r.Name(), r.Width(), "c."+c.regField(path, r))
		}
		for _, mem := range m.Mems() {
			for i := range mem.ReadPorts() {
				add(fmt.Sprintf("%s_rd%d", mem.Name(), i), mem.ElemWidth(),
					"c."+c.portField("rd", path, mem, i))
			}
		}
		for _, child := range path.Children() {
			scope(child, child.Inst().Name())
		}
		c.retErr("t.PopModule()")
	}
	scope(c.plan.RootPath(), c.plan.Root().Name())
	c.w.Line("return nil")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
	return refs
}

// emitUpdateTrace emits the method reporting the current values of every
// signal registered by SetTrace.
func (c *compiler) emitUpdateTrace(refs []traceRef) {
	c.w.Line("// UpdateTrace records the current signal values at time stamp t.")
	c.w.Line("// It does nothing until a tracer is set.")
	c.w.Line("func (c *%s) UpdateTrace(t uint64) error {", c.typ)
	c.w.Indent()
	c.w.Line("if c.trace == nil {")
	c.w.Indent()
	c.w.Line("return nil")
	c.w.Unindent()
	c.w.Line("}")
	c.retErr("c.trace.Timestamp(t)")
	for i, r := range refs {
		c.retErr("c.trace.Update(c.traceIDs[%d], %s)", i, r.value)
	}
	c.w.Line("return nil")
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitDumpState() {
	c.w.Line("// DumpState writes the current register and read port values to w.")
	c.w.Line("func (c *%s) DumpState(w io.Writer) {", c.typ)
	c.w.Indent()
	for _, path := range c.plan.Paths() {
		for _, r := range path.Module().Registers() {
			c.w.Line("fmt.Fprintf(w, %q, c.%s)",
				fmt.Sprintf("%s.%s = %%#x\n", path.Name(), r.Name()), c.regField(path, r))
		}
		for _, mem := range path.Module().Mems() {
			for i := range mem.ReadPorts() {
				c.w.Line("fmt.Fprintf(w, %q, c.%s)",
					fmt.Sprintf("%s.%s.read%d = %%#x\n", path.Name(), mem.Name(), i),
					c.portField("rd", path, mem, i))
			}
		}
	}
	c.w.Unindent()
	c.w.Line("}")
	c.w.Newline()
}

func (c *compiler) emitHelpers() {
	if c.needMux {
		c.w.Line("func mux(s, a, b uint64) uint64 {")
		c.w.Indent()
		c.w.Line("if s != 0 {")
		c.w.Indent()
		c.w.Line("return a")
		c.w.Unindent()
		c.w.Line("}")
		c.w.Line("return b")
		c.w.Unindent()
		c.w.Line("}")
		c.w.Newline()
	}
	if c.needB2u {
		c.w.Line("func b2u(b bool) uint64 {")
		c.w.Indent()
		c.w.Line("if b {")
		c.w.Indent()
		c.w.Line("return 1")
		c.w.Unindent()
		c.w.Line("}")
		c.w.Line("return 0")
		c.w.Unindent()
		c.w.Line("}")
		c.w.Newline()
	}
}

// masked wraps a parenthesized expression with a width mask, skipping the
// mask at full width.
//
func masked(e string, w int) string {
	if w >= 64 {
		return e
	}
	return fmt.Sprintf("%s & %#x", e, mask(w))
}

// sextExpr sign-extends a w-bit expression to int64.
func sextExpr(e string, w int) string {
	if w >= 64 {
		return fmt.Sprintf("int64(%s)", e)
	}
	k := 64 - w
	return fmt.Sprintf("(int64(%s<<%d) >> %d)", e, k, k)
}

var cmpToken = map[hwgraph.Op]string{
	hwgraph.OpEq: "==", hwgraph.OpNe: "!=",
	hwgraph.OpLt: "<", hwgraph.OpLe: "<=", hwgraph.OpGt: ">", hwgraph.OpGe: ">=",
	hwgraph.OpLtS: "<", hwgraph.OpLeS: "<=", hwgraph.OpGtS: ">", hwgraph.OpGeS: ">=",
}

// expr returns the Go expression computing one node's value from its
// dependencies' locals. The semantics mirror Simulator.eval exactly.
//
func (c *compiler) expr(n hwgraph.Node) string {
	sig := n.Sig
	w := sig.Width()
	t := func(s *hwgraph.Signal) string {
		return fmt.Sprintf("t%d", c.nidx(n.Path, s))
	}
	switch sig.Kind() {
	case hwgraph.KindLit:
		return fmt.Sprintf("uint64(%#x)", sig.LitValue())
	case hwgraph.KindInput:
		if parent := n.Path.Parent(); parent != nil {
			return fmt.Sprintf("t%d", c.nidx(parent, n.Path.Inst().Driven(sig.Name())))
		}
		return masked("c."+c.in[sig.Name()], w)
	case hwgraph.KindReg:
		return "c." + c.regField(n.Path, sig.Reg())
	case hwgraph.KindMemRead:
		mem, port := sig.ReadPort()
		return "c." + c.portField("rd", n.Path, mem, port)
	case hwgraph.KindInstOut:
		child := n.Path.Child(sig.Inst())
		return fmt.Sprintf("t%d", c.nidx(child, sig.Inst().Target().OutputSignal(sig.Name())))
	case hwgraph.KindBits:
		hi, lo := sig.BitsRange()
		if lo == 0 {
			return fmt.Sprintf("%s & %#x", t(sig.Lhs()), mask(hi+1))
		}
		return fmt.Sprintf("(%s >> %d) & %#x", t(sig.Lhs()), lo, mask(hi-lo+1))
	case hwgraph.KindRepeat:
		a := t(sig.Lhs())
		aw := sig.Lhs().Width()
		e := a
		for i := 1; i < sig.RepeatCount(); i++ {
			e = fmt.Sprintf("%s | %s<<%d", e, a, i*aw)
		}
		return e
	case hwgraph.KindConcat:
		return fmt.Sprintf("%s<<%d | %s", t(sig.Lhs()), sig.Rhs().Width(), t(sig.Rhs()))
	case hwgraph.KindMux:
		c.needMux = true
		return fmt.Sprintf("mux(%s, %s, %s)", t(sig.Sel()), t(sig.Lhs()), t(sig.Rhs()))
	case hwgraph.KindUnary:
		a := t(sig.Lhs())
		switch sig.Op() {
		case hwgraph.OpNot:
			return masked("^"+a, w)
		case hwgraph.OpNeg:
			return masked("-"+a, w)
		}
	case hwgraph.KindBinary:
		a, b := t(sig.Lhs()), t(sig.Rhs())
		switch sig.Op() {
		case hwgraph.OpAdd:
			return masked(fmt.Sprintf("(%s + %s)", a, b), w)
		case hwgraph.OpSub:
			return masked(fmt.Sprintf("(%s - %s)", a, b), w)
		case hwgraph.OpMul:
			return masked(fmt.Sprintf("(%s * %s)", a, b), w)
		case hwgraph.OpMulS:
			return masked(fmt.Sprintf("uint64(%s * %s)",
				sextExpr(a, sig.Lhs().Width()), sextExpr(b, sig.Rhs().Width())), w)
		case hwgraph.OpAnd:
			return fmt.Sprintf("%s & %s", a, b)
		case hwgraph.OpOr:
			return fmt.Sprintf("%s | %s", a, b)
		case hwgraph.OpXor:
			return fmt.Sprintf("%s ^ %s", a, b)
		case hwgraph.OpShl:
			return masked(fmt.Sprintf("(%s << %s)", a, b), w)
		case hwgraph.OpShr:
			return fmt.Sprintf("%s >> %s", a, b)
		case hwgraph.OpSra:
			return masked(fmt.Sprintf("uint64(%s >> %s)", sextExpr(a, w), b), w)
		}
	case hwgraph.KindCmp:
		c.needB2u = true
		a, b := t(sig.Lhs()), t(sig.Rhs())
		tok := cmpToken[sig.Op()]
		if sig.Op().Signed() {
			aw := sig.Lhs().Width()
			return fmt.Sprintf("b2u(%s %s %s)", sextExpr(a, aw), tok, sextExpr(b, aw))
		}
		return fmt.Sprintf("b2u(%s %s %s)", a, tok, b)
	}
	panic(errors.Errorf("sim: cannot compile %s", sig))
}
