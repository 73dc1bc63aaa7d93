// Package verilog emits synthesizable, structural Verilog-2001 for
// validated designs.
//
// Each distinct module of the hierarchy becomes one Verilog module with
// implicit reset_n and clk ports. Registers reset asynchronously on the
// falling edge of reset_n; memories become register arrays with one
// clocked process per concern, preserving the read-before-write and
// last-write-wins port semantics of the simulators. Initial memory
// contents load through an initial block once at time zero, while the
// simulators reapply them on every Reset.
//
package verilog

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/internal/cw"
)

// Generate validates m and writes Verilog source for it and every module
// it instantiates to w, dependencies first.
//
// Design names (modules, ports, registers, memories, instances) must be
// legal Verilog identifiers and must not start with an underscore; the
// underscore prefix is reserved for generated internal names. The port
// names "clk" and "reset_n" are taken by the implicit ports.
//
func Generate(w io.Writer, m *hwgraph.Module) error {
	plan, err := hwgraph.Validate(m)
	if err != nil {
		return errors.Wrapf(err, "verilog: cannot generate module %q", m.Name())
	}
	for _, mod := range plan.Modules() {
		if err := checkNames(mod); err != nil {
			return err
		}
	}
	// Emit into a buffer so that an error cannot leave a truncated
	// netlist on w.
	var buf bytes.Buffer
	g := &generator{w: cw.New(&buf, "    "), plan: plan}
	for i, mod := range plan.Modules() {
		if i > 0 {
			g.w.Newline()
		}
		g.module(mod)
	}
	if err := g.w.Err(); err != nil {
		return errors.Wrap(err, "verilog: write")
	}
	_, err = w.Write(buf.Bytes())
	return errors.Wrap(err, "verilog: write")
}

var verilogKeywords = map[string]bool{
	"always": true, "assign": true, "begin": true, "case": true,
	"default": true, "else": true, "end": true, "endcase": true,
	"endfunction": true, "endmodule": true, "for": true, "function": true,
	"if": true, "initial": true, "inout": true, "input": true,
	"integer": true, "localparam": true, "module": true, "negedge": true,
	"or": true, "output": true, "parameter": true, "posedge": true,
	"reg": true, "signed": true, "wire": true,
}

func checkIdent(name, what string) error {
	if name == "" {
		return errors.Errorf("verilog: empty %s name", what)
	}
	if strings.HasPrefix(name, "_") {
		return errors.Errorf("verilog: %s name %q starts with an underscore, reserved for generated names", what, name)
	}
	if verilogKeywords[name] {
		return errors.Errorf("verilog: %s name %q is a Verilog keyword", what, name)
	}
	for i, r := range name {
		ok := r == '_' || r == '$' && i > 0 ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' && i > 0
		if !ok {
			return errors.Errorf("verilog: %s name %q is not a legal Verilog identifier", what, name)
		}
	}
	return nil
}

func checkNames(m *hwgraph.Module) error {
	if err := checkIdent(m.Name(), "module"); err != nil {
		return err
	}
	for _, name := range m.InputNames() {
		if name == "clk" || name == "reset_n" {
			return errors.Errorf("verilog: module %q: input %q collides with an implicit port", m.Name(), name)
		}
		if err := checkIdent(name, "input"); err != nil {
			return err
		}
	}
	for _, name := range m.OutputNames() {
		if name == "clk" || name == "reset_n" {
			return errors.Errorf("verilog: module %q: output %q collides with an implicit port", m.Name(), name)
		}
		if err := checkIdent(name, "output"); err != nil {
			return err
		}
	}
	for _, r := range m.Registers() {
		if err := checkIdent(r.Name(), "register"); err != nil {
			return err
		}
	}
	for _, mem := range m.Mems() {
		if err := checkIdent(mem.Name(), "memory"); err != nil {
			return err
		}
	}
	for _, inst := range m.Instances() {
		if err := checkIdent(inst.Name(), "instance"); err != nil {
			return err
		}
	}
	return nil
}

type generator struct {
	w    *cw.Writer
	plan *hwgraph.Plan
}

// rng returns a Verilog range for a width, empty for single-bit nets.
func rng(w int) string {
	if w == 1 {
		return ""
	}
	return fmt.Sprintf("[%d:0] ", w-1)
}

func lit(v uint64, w int) string {
	return fmt.Sprintf("%d'h%x", w, v)
}

// ref returns the net carrying a signal's value within its module.
func ref(s *hwgraph.Signal) string {
	switch s.Kind() {
	case hwgraph.KindInput:
		return s.Name()
	case hwgraph.KindReg:
		return "_reg_" + s.Reg().Name()
	case hwgraph.KindMemRead:
		mem, port := s.ReadPort()
		return fmt.Sprintf("_mem_%s_rd%d", mem.Name(), port)
	}
	return fmt.Sprintf("_s%d", s.ID())
}

func (g *generator) module(m *hwgraph.Module) {
	g.w.Line("module %s(", m.Name())
	g.w.Indent()
	g.w.Line("input wire reset_n,")
	g.w.Append("input wire clk")
	for _, name := range m.InputNames() {
		g.w.Append(",")
		g.w.Newline()
		g.w.Append("input wire %s%s", rng(m.InputSignal(name).Width()), name)
	}
	for _, name := range m.OutputNames() {
		g.w.Append(",")
		g.w.Newline()
		g.w.Append("output wire %s%s", rng(m.OutputSignal(name).Width()), name)
	}
	g.w.Newline()
	g.w.Unindent()
	g.w.Line(");")
	g.w.Indent()

	g.wires(m)
	g.registers(m)
	g.memories(m)
	g.instances(m)

	for _, name := range m.OutputNames() {
		g.w.Line("assign %s = %s;", name, ref(m.OutputSignal(name)))
	}

	g.w.Unindent()
	g.w.Line("endmodule")
}

// wires declares and drives one net per combinational signal, in
// dependency order. Instance outputs get bare declarations; the instance
// statement drives them.
//
func (g *generator) wires(m *hwgraph.Module) {
	for _, s := range g.plan.Local(m) {
		switch s.Kind() {
		case hwgraph.KindInput, hwgraph.KindReg, hwgraph.KindMemRead:
			// carried by a port or a declared reg
		case hwgraph.KindInstOut:
			g.w.Line("wire %s_s%d;", rng(s.Width()), s.ID())
		default:
			g.w.Line("wire %s_s%d = %s;", rng(s.Width()), s.ID(), g.expr(s))
		}
	}
}

func (g *generator) registers(m *hwgraph.Module) {
	if len(m.Registers()) == 0 {
		return
	}
	for _, r := range m.Registers() {
		g.w.Line("reg %s_reg_%s;", rng(r.Width()), r.Name())
	}
	g.w.Line("always @(posedge clk, negedge reset_n) begin")
	g.w.Indent()
	g.w.Line("if (~reset_n) begin")
	g.w.Indent()
	for _, r := range m.Registers() {
		g.w.Line("_reg_%s <= %s;", r.Name(), lit(r.Default(), r.Width()))
	}
	g.w.Unindent()
	g.w.Line("end else begin")
	g.w.Indent()
	for _, r := range m.Registers() {
		g.w.Line("_reg_%s <= %s;", r.Name(), ref(r.Next()))
	}
	g.w.Unindent()
	g.w.Line("end")
	g.w.Unindent()
	g.w.Line("end")
}

// memories emits one register array per memory, a resettable holding reg
// per read port and a write process. Reads and writes are nonblocking, so
// a read colliding with a write observes the old contents; writes apply
// in declaration order, the last assignment winning.
//
func (g *generator) memories(m *hwgraph.Module) {
	for _, mem := range m.Mems() {
		g.w.Line("reg %s_mem_%s [0:%d];", rng(mem.ElemWidth()), mem.Name(), mem.Depth()-1)
		for i := range mem.ReadPorts() {
			g.w.Line("reg %s_mem_%s_rd%d;", rng(mem.ElemWidth()), mem.Name(), i)
		}
		if init := mem.Initial(); init != nil {
			g.w.Line("initial begin")
			g.w.Indent()
			for i, v := range init {
				g.w.Line("_mem_%s[%d] = %s;", mem.Name(), i, lit(v, mem.ElemWidth()))
			}
			g.w.Unindent()
			g.w.Line("end")
		}
		g.w.Line("always @(posedge clk, negedge reset_n) begin")
		g.w.Indent()
		g.w.Line("if (~reset_n) begin")
		g.w.Indent()
		for i := range mem.ReadPorts() {
			g.w.Line("_mem_%s_rd%d <= %s;", mem.Name(), i, lit(0, mem.ElemWidth()))
		}
		g.w.Unindent()
		g.w.Line("end else begin")
		g.w.Indent()
		for i, port := range mem.ReadPorts() {
			g.w.Line("if (%s) begin", ref(port.Enable))
			g.w.Indent()
			g.w.Line("_mem_%s_rd%d <= _mem_%s[%s];", mem.Name(), i, mem.Name(), ref(port.Addr))
			g.w.Unindent()
			g.w.Line("end")
		}
		g.w.Unindent()
		g.w.Line("end")
		g.w.Unindent()
		g.w.Line("end")
		if len(mem.WritePorts()) > 0 {
			g.w.Line("always @(posedge clk) begin")
			g.w.Indent()
			for _, port := range mem.WritePorts() {
				g.w.Line("if (%s) begin", ref(port.Enable))
				g.w.Indent()
				g.w.Line("_mem_%s[%s] <= %s;", mem.Name(), ref(port.Addr), ref(port.Data))
				g.w.Unindent()
				g.w.Line("end")
			}
			g.w.Unindent()
			g.w.Line("end")
		}
	}
}

func (g *generator) instances(m *hwgraph.Module) {
	// instance output nets, keyed by instance
	outs := make(map[*hwgraph.Instance][]*hwgraph.Signal)
	for _, s := range g.plan.Local(m) {
		if s.Kind() == hwgraph.KindInstOut {
			outs[s.Inst()] = append(outs[s.Inst()], s)
		}
	}
	for _, inst := range m.Instances() {
		g.w.Line("%s %s(", inst.Target().Name(), inst.Name())
		g.w.Indent()
		g.w.Line(".reset_n(reset_n),")
		g.w.Append(".clk(clk)")
		for _, name := range inst.Target().InputNames() {
			g.w.Append(",")
			g.w.Newline()
			g.w.Append(".%s(%s)", name, ref(inst.Driven(name)))
		}
		for _, s := range outs[inst] {
			g.w.Append(",")
			g.w.Newline()
			g.w.Append(".%s(_s%d)", s.Name(), s.ID())
		}
		g.w.Newline()
		g.w.Unindent()
		g.w.Line(");")
	}
}

// expr returns the Verilog expression for one combinational signal. All
// operands are named nets, so no parenthesization is needed beyond what
// the operators require.
//
func (g *generator) expr(s *hwgraph.Signal) string {
	switch s.Kind() {
	case hwgraph.KindLit:
		return lit(s.LitValue(), s.Width())
	case hwgraph.KindBits:
		hi, lo := s.BitsRange()
		if s.Lhs().Width() == 1 {
			return ref(s.Lhs())
		}
		if hi == lo {
			return fmt.Sprintf("%s[%d]", ref(s.Lhs()), lo)
		}
		return fmt.Sprintf("%s[%d:%d]", ref(s.Lhs()), hi, lo)
	case hwgraph.KindRepeat:
		return fmt.Sprintf("{%d{%s}}", s.RepeatCount(), ref(s.Lhs()))
	case hwgraph.KindConcat:
		return fmt.Sprintf("{%s, %s}", ref(s.Lhs()), ref(s.Rhs()))
	case hwgraph.KindMux:
		return fmt.Sprintf("%s ? %s : %s", ref(s.Sel()), ref(s.Lhs()), ref(s.Rhs()))
	case hwgraph.KindUnary:
		switch s.Op() {
		case hwgraph.OpNot:
			return "~" + ref(s.Lhs())
		case hwgraph.OpNeg:
			return "-" + ref(s.Lhs())
		}
	case hwgraph.KindBinary:
		a, b := ref(s.Lhs()), ref(s.Rhs())
		switch s.Op() {
		case hwgraph.OpAdd:
			return fmt.Sprintf("%s + %s", a, b)
		case hwgraph.OpSub:
			return fmt.Sprintf("%s - %s", a, b)
		case hwgraph.OpMul:
			return fmt.Sprintf("%s * %s", a, b)
		case hwgraph.OpMulS:
			return fmt.Sprintf("$signed(%s) * $signed(%s)", a, b)
		case hwgraph.OpAnd:
			return fmt.Sprintf("%s & %s", a, b)
		case hwgraph.OpOr:
			return fmt.Sprintf("%s | %s", a, b)
		case hwgraph.OpXor:
			return fmt.Sprintf("%s ^ %s", a, b)
		case hwgraph.OpShl:
			return fmt.Sprintf("%s << %s", a, b)
		case hwgraph.OpShr:
			return fmt.Sprintf("%s >> %s", a, b)
		case hwgraph.OpSra:
			return fmt.Sprintf("$signed(%s) >>> %s", a, b)
		}
	case hwgraph.KindCmp:
		a, b := ref(s.Lhs()), ref(s.Rhs())
		if s.Op().Signed() {
			a, b = "$signed("+a+")", "$signed("+b+")"
		}
		switch s.Op() {
		case hwgraph.OpEq:
			return fmt.Sprintf("%s == %s", a, b)
		case hwgraph.OpNe:
			return fmt.Sprintf("%s != %s", a, b)
		case hwgraph.OpLt, hwgraph.OpLtS:
			return fmt.Sprintf("%s < %s", a, b)
		case hwgraph.OpLe, hwgraph.OpLeS:
			return fmt.Sprintf("%s <= %s", a, b)
		case hwgraph.OpGt, hwgraph.OpGtS:
			return fmt.Sprintf("%s > %s", a, b)
		case hwgraph.OpGe, hwgraph.OpGeS:
			return fmt.Sprintf("%s >= %s", a, b)
		}
	}
	panic(errors.Errorf("verilog: cannot emit %s", s))
}
