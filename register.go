package hwgraph

import (
	"github.com/pkg/errors"
)

// A Register is a clocked state element holding a fixed-width value across
// steps. Its current-value signal has no structural predecessor: the
// next-value edge is tracked out-of-band and never takes part in
// combinational cycle detection. Every register's next value is computed
// from the previous step's state before any register is overwritten, so
// registers never observe each other's updates within the same step.
//
type Register struct {
	mod   *Module
	name  string
	width int
	def   uint64
	value *Signal
	next  *Signal
}

// Name returns the register's name.
func (r *Register) Name() string { return r.name }

// Width returns the register's width in bits.
func (r *Register) Width() int { return r.width }

// Default returns the register's default/reset value.
func (r *Register) Default() uint64 { return r.def }

// Module returns the module that owns r.
func (r *Register) Module() *Module { return r.mod }

// Value returns the signal carrying the register's current value.
func (r *Register) Value() *Signal { return r.value }

// Next returns the next-value signal assigned with DriveNext, or nil if the
// register is not driven yet.
//
func (r *Register) Next() *Signal { return r.next }

// DriveNext assigns the register's next-value signal. Feedback through the
// register's own current value is the intended pattern and does not form a
// combinational loop. DriveNext panics if next belongs to another module,
// has a different width, or if the register is already driven.
//
func (r *Register) DriveNext(next *Signal) {
	r.mod.checkOpen("next value of register " + r.name)
	if next.mod != r.mod {
		panic(errors.Errorf("hwgraph: cannot drive register %q in module %q with a signal from module %q",
			r.name, r.mod.name, next.mod.name))
	}
	if next.width != r.width {
		panic(errors.Errorf("hwgraph: cannot drive %d-bit register %q with a %d-bit signal",
			r.width, r.name, next.width))
	}
	if r.next != nil {
		panic(errors.Errorf("hwgraph: register %q in module %q already has a next-value driver",
			r.name, r.mod.name))
	}
	r.next = next
}
