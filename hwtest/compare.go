// Package hwtest provides utility functions for testing designs.
//
package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/sim"
)

func randValue(rng *rand.Rand, width int) uint64 {
	v := rng.Uint64()
	if width < 64 {
		v &= 1<<uint(width) - 1
	}
	return v
}

// CompareModules drives two modules with identical input sequences for the
// given number of cycles and fails t on the first output mismatch. Both
// modules must have the same input/output interface.
//
func CompareModules(t *testing.T, cycles int, m1, m2 *hwgraph.Module) {
	t.Helper()

	seed := time.Now().UnixNano()
	rng := rand.New(rand.NewSource(seed))

	// compare interfaces
	in1, in2 := m1.InputNames(), m2.InputNames()
	if len(in1) != len(in2) {
		t.Fatalf("modules %q and %q have different input counts (%d and %d)", m1.Name(), m2.Name(), len(in1), len(in2))
	}
	for i := range in1 {
		if in1[i] != in2[i] {
			t.Fatalf("input #%d differs: %q != %q", i, in1[i], in2[i])
		}
		if w1, w2 := m1.InputSignal(in1[i]).Width(), m2.InputSignal(in2[i]).Width(); w1 != w2 {
			t.Fatalf("input %q differs in width: %d != %d", in1[i], w1, w2)
		}
	}
	out1, out2 := m1.OutputNames(), m2.OutputNames()
	if len(out1) != len(out2) {
		t.Fatalf("modules %q and %q have different output counts (%d and %d)", m1.Name(), m2.Name(), len(out1), len(out2))
	}
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("output #%d differs: %q != %q", i, out1[i], out2[i])
		}
		if w1, w2 := m1.OutputSignal(out1[i]).Width(), m2.OutputSignal(out2[i]).Width(); w1 != w2 {
			t.Fatalf("output %q differs in width: %d != %d", out1[i], w1, w2)
		}
	}

	s1, err := sim.New(m1)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := sim.New(m2)
	if err != nil {
		t.Fatal(err)
	}

	inputs := make([]uint64, len(in1))

	errString := func(oname string, ex, got uint64) string {
		var b strings.Builder
		for i, n := range in1 {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%#x", n, inputs[i])
		}
		return fmt.Sprintf("seed %d\nExpected %s => %s=%#x\nGot %#x", seed, b.String(), oname, ex, got)
	}
	check := func() {
		for _, o := range out1 {
			if v1, v2 := s1.Peek(o), s2.Peek(o); v1 != v2 {
				t.Fatal(errString(o, v1, v2))
			}
		}
	}
	apply := func() {
		for i, n := range in1 {
			s1.Poke(n, inputs[i])
			s2.Poke(n, inputs[i])
		}
		s1.Prop()
		s2.Prop()
		check()
		s1.Step()
		s2.Step()
		check()
	}

	// try all 0
	apply()

	// try all 1
	for i, n := range in1 {
		inputs[i] = 1<<uint(m1.InputSignal(n).Width()) - 1
	}
	apply()

	for c := 0; c < cycles; c++ {
		for i, n := range in1 {
			inputs[i] = randValue(rng, m1.InputSignal(n).Width())
		}
		apply()
	}
}
