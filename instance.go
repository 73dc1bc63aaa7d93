package hwgraph

import (
	"github.com/pkg/errors"
)

// An Instance is a placement of one module inside another. Its inputs are
// bound to signals of the instantiating module and its outputs become
// signals usable there. Instancing never shares graph nodes across modules:
// each module's internal graph stays self-contained and bindings are the
// only crossing points.
//
type Instance struct {
	mod    *Module // instantiating module
	target *Module
	name   string
	driven map[string]*Signal
	outs   map[string]*Signal
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// Module returns the instantiating module.
func (i *Instance) Module() *Module { return i.mod }

// Target returns the instantiated module.
func (i *Instance) Target() *Module { return i.target }

// Driven returns the signal bound to the target input called name, or nil
// if that input is not driven yet.
//
func (i *Instance) Driven(name string) *Signal { return i.driven[name] }

// Drive binds the target input called name to src, a signal of the
// instantiating module. Drive panics if the input does not exist, is
// already driven, or if src's module or width do not match. Inputs left
// undriven are reported at validation time.
//
func (i *Instance) Drive(name string, src *Signal) {
	i.mod.checkOpen("binding of instance " + i.name)
	in := i.target.inputs[name]
	if in == nil {
		panic(errors.Errorf("hwgraph: instance %q has no input %q on module %q", i.name, name, i.target.name))
	}
	if src.mod != i.mod {
		panic(errors.Errorf("hwgraph: cannot drive input %q of instance %q with a signal from module %q",
			name, i.name, src.mod.name))
	}
	if src.width != in.width {
		panic(errors.Errorf("hwgraph: input %q of instance %q is %d bit(s) wide, got a %d-bit signal",
			name, i.name, in.width, src.width))
	}
	if _, ok := i.driven[name]; ok {
		panic(errors.Errorf("hwgraph: input %q of instance %q is already driven", name, i.name))
	}
	i.driven[name] = src
}

// Output returns the signal carrying the target output called name in the
// instantiating module. Repeated calls return the same signal. Output
// panics if the target has no such output.
//
func (i *Instance) Output(name string) *Signal {
	if s, ok := i.outs[name]; ok {
		return s
	}
	out := i.target.outputs[name]
	if out == nil {
		panic(errors.Errorf("hwgraph: instance %q has no output %q on module %q", i.name, name, i.target.name))
	}
	s := i.mod.newSignal(KindInstOut, out.width)
	s.inst, s.name = i, name
	i.outs[name] = s
	return s
}
