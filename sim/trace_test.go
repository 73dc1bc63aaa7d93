package sim_test

import (
	"bytes"
	"strings"
	"testing"

	hw "github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/sim"
)

func Test_vcd_output(t *testing.T) {
	var buf bytes.Buffer
	v, err := sim.NewVCD(&buf, "")
	if err != nil {
		t.Fatal(err)
	}
	check := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	check(v.PushModule("top"))
	clk, err := v.AddSignal("clk", 1)
	check(err)
	count, err := v.AddSignal("count", 4)
	check(err)
	check(v.PopModule())
	check(v.Timestamp(0))
	check(v.Update(clk, 1))
	check(v.Update(count, 0xfa)) // masked to 4 bits

	want := `$timescale 1 ns $end
$scope module top $end
$var wire 1 ! clk $end
$var wire 4 " count $end
$upscope $end
$enddefinitions $end
#0
1!
b1010 "
`
	if got := buf.String(); got != want {
		t.Errorf("dump:\n%s\nexpected:\n%s", got, want)
	}
}

func Test_vcd_misuse(t *testing.T) {
	var buf bytes.Buffer
	v, err := sim.NewVCD(&buf, "10 ps")
	if err != nil {
		t.Fatal(err)
	}
	if err := v.PopModule(); err == nil {
		t.Error("expected an error from an unbalanced PopModule")
	}
	if err := v.PushModule("top"); err != nil {
		t.Fatal(err)
	}
	if err := v.PopModule(); err != nil {
		t.Fatal(err)
	}
	if _, err := v.AddSignal("late", 1); err == nil {
		t.Error("expected an error declaring a signal after definitions closed")
	}
	if err := v.Update(7, 0); err == nil {
		t.Error("expected an error updating an unknown signal id")
	}
}

func Test_generate_trace_methods(t *testing.T) {
	ctx := hw.NewContext()
	inner := ctx.Module("timer")
	r := inner.Reg("tick", 4, 0)
	r.DriveNext(r.Value().Add(inner.Lit(1, 1)).Bits(3, 0))
	inner.Output("tick", r.Value())
	outer := ctx.Module("top")
	i1 := outer.Instance("timer", "t1")
	outer.Output("tick", i1.Output("tick"))

	var buf bytes.Buffer
	if err := sim.Generate(&buf, outer, sim.Options{Trace: true}); err != nil {
		t.Fatal(err)
	}
	src := buf.String()
	for _, want := range []string{
		`hwsim "github.com/hwgraph/hwgraph/sim"`,
		"trace    hwsim.Tracer",
		"traceIDs []hwsim.TraceID",
		"func (c *Top) SetTrace(t hwsim.Tracer) error {",
		"func (c *Top) UpdateTrace(t uint64) error {",
		`t.PushModule("top")`,
		`t.PushModule("t1")`,
		`add("tick", 4)`,
		"c.trace.Timestamp(t)",
		"c.trace.Update(c.traceIDs[0], c.Tick)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("generated source does not contain %q\n%s", want, src)
		}
	}
	if n := strings.Count(src, "t.PopModule()"); n != 2 {
		t.Errorf("%d PopModule calls emitted, expected 2", n)
	}
}

func Test_generate_trace_port_collision(t *testing.T) {
	ctx := hw.NewContext()
	m := ctx.Module("m")
	m.Output("o", m.Input("trace", 1))

	var buf bytes.Buffer
	err := sim.Generate(&buf, m, sim.Options{NameStyle: sim.StyleVerbatim, Trace: true})
	if err == nil {
		t.Error("expected an identifier collision error")
	}
}
