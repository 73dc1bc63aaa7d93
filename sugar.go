package hwgraph

import (
	"github.com/pkg/errors"
)

// A Cond is a chain of prioritized conditional arms under construction.
// Else completes the chain and lowers it to nested muxes; earlier arms
// take priority over later ones.
//
type Cond struct {
	mod  *Module
	sels []*Signal
	vals []*Signal
}

// When starts a conditional chain that yields then while the 1-bit signal
// cond is 1.
//
//	v := hwgraph.When(a, x).ElseWhen(b, y).Else(z)
//
// is equivalent to a.Mux(x, b.Mux(y, z)). Both signals must belong to the
// same module.
//
func When(cond, then *Signal) *Cond {
	cond.checkSameModule(then)
	if cond.width != 1 {
		panic(errors.Errorf("hwgraph: conditional chain condition must be 1 bit wide, got %d bit(s)", cond.width))
	}
	return &Cond{mod: cond.mod, sels: []*Signal{cond}, vals: []*Signal{then}}
}

// ElseWhen appends an arm that yields then while cond is 1 and no earlier
// arm was taken. Every arm must share a width with the first one.
//
func (c *Cond) ElseWhen(cond, then *Signal) *Cond {
	if cond.mod != c.mod || then.mod != c.mod {
		panic(errors.Errorf("hwgraph: cannot combine signals from different modules in a conditional chain in module %q",
			c.mod.name))
	}
	if cond.width != 1 {
		panic(errors.Errorf("hwgraph: conditional chain condition must be 1 bit wide, got %d bit(s)", cond.width))
	}
	c.vals[0].checkSameWidth(then)
	c.sels = append(c.sels, cond)
	c.vals = append(c.vals, then)
	return c
}

// Else completes the chain with a fallback yielded when no condition
// holds, and returns the lowered signal.
//
func (c *Cond) Else(otherwise *Signal) *Signal {
	if otherwise.mod != c.mod {
		panic(errors.Errorf("hwgraph: cannot combine signals from different modules in a conditional chain in module %q",
			c.mod.name))
	}
	v := otherwise
	for i := len(c.sels) - 1; i >= 0; i-- {
		v = c.mod.Mux(c.sels[i], c.vals[i], v)
	}
	return v
}
