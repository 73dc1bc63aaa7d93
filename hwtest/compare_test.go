package hwtest_test

import (
	"testing"

	hw "github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/hwtest"
)

// xorOps computes xor with the dedicated operator.
func xorOps(ctx *hw.Context) *hw.Module {
	m := ctx.Module("xor_ops")
	m.Output("out", m.Input("a", 8).Xor(m.Input("b", 8)))
	return m
}

// xorGates computes xor from and/or/not.
func xorGates(ctx *hw.Context) *hw.Module {
	m := ctx.Module("xor_gates")
	a, b := m.Input("a", 8), m.Input("b", 8)
	m.Output("out", a.Or(b).And(a.And(b).Not()))
	return m
}

func Test_compare_xor(t *testing.T) {
	ctx := hw.NewContext()
	hwtest.CompareModules(t, 256, xorOps(ctx), xorGates(ctx))
}

// counterAdd counts with the adder, dropping the carry.
func counterAdd(ctx *hw.Context) *hw.Module {
	m := ctx.Module("counter_add")
	c := m.Reg("c", 4, 0)
	c.DriveNext(c.Value().Add(m.Lit(1, 1)).Bits(3, 0))
	m.Output("count", c.Value())
	return m
}

// counterSub counts by subtracting the all-ones pattern.
func counterSub(ctx *hw.Context) *hw.Module {
	m := ctx.Module("counter_sub")
	c := m.Reg("c", 4, 0)
	c.DriveNext(c.Value().Sub(m.Lit(0xf, 4)))
	m.Output("count", c.Value())
	return m
}

func Test_compare_counters(t *testing.T) {
	ctx := hw.NewContext()
	hwtest.CompareModules(t, 64, counterAdd(ctx), counterSub(ctx))
}

// mux4Sugar selects one of four inputs with a conditional chain.
func mux4Sugar(ctx *hw.Context) *hw.Module {
	m := ctx.Module("mux4_sugar")
	sel := m.Input("sel", 2)
	a, b, c, d := m.Input("a", 8), m.Input("b", 8), m.Input("c", 8), m.Input("d", 8)
	m.Output("out", hw.When(sel.Eq(m.Lit(0, 2)), a).
		ElseWhen(sel.Eq(m.Lit(1, 2)), b).
		ElseWhen(sel.Eq(m.Lit(2, 2)), c).
		Else(d))
	return m
}

// mux4Tree selects with an explicit mux tree on the select bits.
func mux4Tree(ctx *hw.Context) *hw.Module {
	m := ctx.Module("mux4_tree")
	sel := m.Input("sel", 2)
	a, b, c, d := m.Input("a", 8), m.Input("b", 8), m.Input("c", 8), m.Input("d", 8)
	lo := sel.Bit(0).Mux(b, a)
	hi := sel.Bit(0).Mux(d, c)
	m.Output("out", sel.Bit(1).Mux(hi, lo))
	return m
}

func Test_compare_mux4(t *testing.T) {
	ctx := hw.NewContext()
	hwtest.CompareModules(t, 256, mux4Sugar(ctx), mux4Tree(ctx))
}
