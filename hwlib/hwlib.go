// Package hwlib provides ready-made parametric modules for common
// building blocks. Each constructor declares a new module in the given
// context and returns it, ready to be instantiated or generated.
//
package hwlib

import (
	hw "github.com/hwgraph/hwgraph"
)

// Adder builds a module adding two width-bit inputs "a" and "b" into a
// width+1 bit output "s"; the top bit of "s" is the carry out.
//
func Adder(ctx *hw.Context, name string, width int) *hw.Module {
	m := ctx.Module(name)
	m.Output("s", m.Input("a", width).Add(m.Input("b", width)))
	return m
}

// Counter builds a width-bit counter with an enable input "en" and a
// "count" output. The counter wraps at 2^width.
//
func Counter(ctx *hw.Context, name string, width int) *hw.Module {
	m := ctx.Module(name)
	c := m.Reg("count", width, 0)
	next := c.Value().Add(m.Lit(1, 1)).Bits(width-1, 0)
	c.DriveNext(m.Input("en", 1).Mux(next, c.Value()))
	m.Output("count", c.Value())
	return m
}

// ShiftRegister builds a width-bit shift register. Each cycle the serial
// input "in" shifts into the least significant bit; "out" is the bit
// shifted out and "q" the parallel contents. width must be at least 2.
//
func ShiftRegister(ctx *hw.Context, name string, width int) *hw.Module {
	m := ctx.Module(name)
	q := m.Reg("q", width, 0)
	q.DriveNext(q.Value().Bits(width-2, 0).Concat(m.Input("in", 1)))
	m.Output("out", q.Value().Bit(width-1))
	m.Output("q", q.Value())
	return m
}

// Rom builds a read-only memory preloaded with contents. Reads are
// synchronous: "data" reflects the element at "addr" one cycle after an
// enabled read. len(contents) must be a power of two not smaller than 2.
//
func Rom(ctx *hw.Context, name string, elemWidth int, contents []uint64) *hw.Module {
	m := ctx.Module(name)
	mem := m.Mem("rom", elemWidth, len(contents))
	mem.InitialContents(contents)
	m.Output("data", mem.ReadPortOf(m.Input("addr", mem.AddrWidth()), m.Input("en", 1)))
	return m
}

// RegisterFile builds a memory with one synchronous read port and one
// write port, exposed as module ports. depth must be a power of two not
// smaller than 2.
//
func RegisterFile(ctx *hw.Context, name string, elemWidth, depth int) *hw.Module {
	m := ctx.Module(name)
	mem := m.Mem("regs", elemWidth, depth)
	mem.WritePortOf(m.Input("waddr", mem.AddrWidth()), m.Input("wdata", elemWidth), m.Input("we", 1))
	m.Output("rdata", mem.ReadPortOf(m.Input("raddr", mem.AddrWidth()), m.Input("re", 1)))
	return m
}
