package sim_test

import (
	"bytes"
	"strings"
	"testing"

	hw "github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/sim"
)

func inverter(ctx *hw.Context) *hw.Module {
	m := ctx.Module("inverter")
	m.Output("out", m.Input("in", 1).Not())
	return m
}

func Test_generate_inverter(t *testing.T) {
	m := inverter(hw.NewContext())
	var buf bytes.Buffer
	if err := sim.Generate(&buf, m, sim.Options{Package: "gen"}); err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	for _, want := range []string{
		"package gen",
		"type Inverter struct {",
		"In uint64",
		"Out uint64",
		"func NewInverter() *Inverter {",
		"func (c *Inverter) Reset() {",
		"func (c *Inverter) Prop() {",
		"func (c *Inverter) PosedgeClk() {",
		"func (c *Inverter) Step() {",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source does not contain %q\n%s", want, src)
		}
	}
	if strings.Contains(src, "DumpState") {
		t.Error("DumpState emitted without Trace")
	}
}

func Test_generate_state(t *testing.T) {
	ctx := hw.NewContext()
	m := ctx.Module("soc")
	c := m.Reg("count", 4, 0)
	c.DriveNext(c.Value().Add(m.Lit(1, 1)).Bits(3, 0))
	mem := m.Mem("ram", 8, 16)
	mem.InitialContents(make([]uint64, 16))
	m.Output("data", mem.ReadPortOf(c.Value(), m.High()))
	m.Output("count", c.Value())

	var buf bytes.Buffer
	if err := sim.Generate(&buf, m, sim.Options{Trace: true}); err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	for _, want := range []string{
		"package sim",
		"reg_p0_count uint64",
		"nxt_p0_count uint64",
		"mem_p0_ram [16]uint64",
		"rd_p0_ram_0 uint64",
		"func (c *Soc) DumpState(w io.Writer) {",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source does not contain %q\n%s", want, src)
		}
	}
}

func Test_generate_deterministic(t *testing.T) {
	gen := func() string {
		ctx := hw.NewContext()
		m := ctx.Module("adder")
		m.Output("s", m.Input("a", 8).Add(m.Input("b", 8)))
		var buf bytes.Buffer
		if err := sim.Generate(&buf, m, sim.Options{}); err != nil {
			t.Fatal(err)
		}
		return buf.String()
	}
	if gen() != gen() {
		t.Error("equal designs generated different source")
	}
}

func Test_generate_name_errors(t *testing.T) {
	td := []struct {
		name string
		fn   func(ctx *hw.Context) *hw.Module
		opts sim.Options
	}{
		{"reserved_method", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			m.Output("reset", m.Input("a", 1))
			return m
		}, sim.Options{}},
		{"port_collision", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			m.Input("out", 1)
			m.Output("Out", m.Input("a", 1))
			return m
		}, sim.Options{}},
		{"illegal_verbatim", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("m")
			m.Output("o", m.Input("a b", 1))
			return m
		}, sim.Options{NameStyle: sim.StyleVerbatim}},
		{"keyword_verbatim", func(ctx *hw.Context) *hw.Module {
			m := ctx.Module("func")
			m.Output("o", m.Input("a", 1))
			return m
		}, sim.Options{NameStyle: sim.StyleVerbatim}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := sim.Generate(&buf, d.fn(hw.NewContext()), d.opts); err == nil {
				t.Error("expected a generation error")
			}
		})
	}
}
