package hwgraph_test

import (
	"strings"
	"testing"

	hw "github.com/hwgraph/hwgraph"
)

func Test_validate_errors(t *testing.T) {
	td := []struct {
		name string
		fn   func(ctx *hw.Context) *hw.Module
		want string
	}{
		{"undriven_register", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			r := m.Reg("r", 4, 0)
			m.Output("o", r.Value())
			return m
		}, "no next-value driver"},
		{"mem_without_read_port", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			mem := m.Mem("ram", 8, 4)
			mem.WritePortOf(m.Lit(0, 2), m.Lit(0, 8), m.High())
			m.Output("o", m.Low())
			return m
		}, "no read ports"},
		{"mem_without_value_source", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			mem := m.Mem("ram", 8, 4)
			m.Output("o", mem.ReadPortOf(m.Lit(0, 2), m.High()))
			return m
		}, "neither write ports nor initial contents"},
		{"undriven_instance_input", func(ctx *hw.Context) *hw.Module {
			inner := ctx.Module("inner")
			inner.Output("o", inner.Input("a", 1))
			outer := ctx.Module("outer")
			i := outer.Instance("inner", "i")
			outer.Output("o", i.Output("o"))
			return outer
		}, "not driven"},
		{"undriven_register_in_instance", func(ctx *hw.Context) *hw.Module {
			inner := ctx.Module("inner")
			inner.Reg("r", 4, 0)
			inner.Output("o", inner.Low())
			outer := ctx.Module("outer")
			outer.Output("o", outer.Instance("inner", "i").Output("o"))
			return outer
		}, "no next-value driver"},
		{"loop_through_instances", func(ctx *hw.Context) *hw.Module {
			inner := ctx.Module("inner")
			inner.Output("o", inner.Input("a", 1).Not())
			outer := ctx.Module("outer")
			i := outer.Instance("inner", "i")
			o := i.Output("o")
			i.Drive("a", o)
			outer.Output("o", o)
			return outer
		}, "combinational loop"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			m := d.fn(hw.NewContext())
			_, err := hw.Validate(m)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), d.want) {
				t.Errorf("error %q does not mention %q", err, d.want)
			}
		})
	}
}

func Test_validate_caches_plan(t *testing.T) {
	ctx := hw.NewContext()
	m := ctx.Module("m")
	m.Output("o", m.Input("a", 1).Not())
	p1, err := hw.Validate(m)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := hw.Validate(m)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("repeated validation returned distinct plans")
	}
}

func Test_validate_freezes(t *testing.T) {
	ctx := hw.NewContext()
	m := ctx.Module("m")
	m.Output("o", m.Input("a", 1))
	if _, err := hw.Validate(m); err != nil {
		t.Fatal(err)
	}
	assertPanics(t, func() { m.Input("late", 1) })
}

func Test_plan_order(t *testing.T) {
	ctx := hw.NewContext()
	inner := ctx.Module("inner")
	inner.Output("s", inner.Input("x", 4).Add(inner.Input("y", 4)).Bits(3, 0))
	outer := ctx.Module("outer")
	a := outer.Input("a", 4)
	i1 := outer.Instance("inner", "i1")
	i1.Drive("x", a)
	i1.Drive("y", a)
	i2 := outer.Instance("inner", "i2")
	i2.Drive("x", i1.Output("s"))
	i2.Drive("y", a)
	outer.Output("o", i2.Output("s"))

	p, err := hw.Validate(outer)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(p.Modules()); n != 2 {
		t.Fatalf("expected 2 distinct modules, got %d", n)
	}
	if p.Modules()[0] != inner || p.Modules()[1] != outer {
		t.Error("modules are not in dependency order")
	}
	if n := len(p.Paths()); n != 3 {
		t.Fatalf("expected 3 paths, got %d", n)
	}
	if p.RootPath().Name() != "outer" {
		t.Errorf("root path name = %q", p.RootPath().Name())
	}
	if got := p.Paths()[1].Name(); got != "outer.i1" {
		t.Errorf("first child path name = %q", got)
	}

	// every node must come after the nodes it depends on
	for idx, n := range p.Nodes() {
		for _, d := range n.Sig.Operands() {
			di := p.NodeIndex(hw.Node{Path: n.Path, Sig: d})
			if di < 0 || di >= idx {
				t.Fatalf("node %v depends on %v which is not scheduled before it", n, d)
			}
		}
	}
}
