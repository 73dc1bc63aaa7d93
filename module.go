package hwgraph

import (
	"github.com/pkg/errors"
)

// A Module is a named, reusable hardware component: ports, internal
// signals, registers, memories and instances of other modules. It is both
// the unit of reuse and the unit of Verilog emission.
//
// Ports share one namespace; registers, memories and instances share
// another. Once a module has been instantiated (or validated) its graph is
// closed and further declarations panic.
//
type Module struct {
	ctx  *Context
	name string

	inputs      map[string]*Signal
	inputOrder  []string
	outputs     map[string]*Signal
	outputOrder []string

	regs  []*Register
	mems  []*Mem
	insts []*Instance
	names map[string]string // registers/mems/instances namespace

	signals []*Signal
	frozen  bool
	plan    *Plan
}

// Name returns the module's name.
func (m *Module) Name() string { return m.name }

// Context returns the Context that owns m.
func (m *Module) Context() *Context { return m.ctx }

func (m *Module) newSignal(k Kind, width int) *Signal {
	s := &Signal{mod: m, id: len(m.signals), kind: k, width: width}
	m.signals = append(m.signals, s)
	return s
}

func (m *Module) checkOpen(what string) {
	if m.frozen {
		panic(errors.Errorf("hwgraph: cannot declare %s: module %q is already instantiated or validated and closed to mutation", what, m.name))
	}
}

func (m *Module) claimName(name, what string) {
	if name == "" {
		panic(errors.Errorf("hwgraph: %s name must not be empty in module %q", what, m.name))
	}
	if prev, ok := m.names[name]; ok {
		panic(errors.Errorf("hwgraph: a %s named %q already exists in module %q", prev, name, m.name))
	}
	m.names[name] = what
}

// Input declares an input port called name with the given width and returns
// the signal carrying its value. Input panics on duplicate port names or
// invalid widths.
//
func (m *Module) Input(name string, width int) *Signal {
	m.checkOpen("input " + name)
	checkWidth("input "+name, width)
	if name == "" {
		panic(errors.Errorf("hwgraph: input name must not be empty in module %q", m.name))
	}
	if _, ok := m.inputs[name]; ok {
		panic(errors.Errorf("hwgraph: an input named %q already exists in module %q", name, m.name))
	}
	if _, ok := m.outputs[name]; ok {
		panic(errors.Errorf("hwgraph: an output named %q already exists in module %q", name, m.name))
	}
	s := m.newSignal(KindInput, width)
	s.name = name
	m.inputs[name] = s
	m.inputOrder = append(m.inputOrder, name)
	return s
}

// Output declares an output port called name driven by src. The port takes
// src's width. Output panics if src is nil, belongs to another module, or
// if the name collides with an existing port.
//
func (m *Module) Output(name string, src *Signal) {
	m.checkOpen("output " + name)
	if src == nil {
		panic(errors.Errorf("hwgraph: output %q of module %q is not connected to any signal", name, m.name))
	}
	if src.mod != m {
		panic(errors.Errorf("hwgraph: cannot drive output %q of module %q with a signal from module %q",
			name, m.name, src.mod.name))
	}
	if name == "" {
		panic(errors.Errorf("hwgraph: output name must not be empty in module %q", m.name))
	}
	if _, ok := m.outputs[name]; ok {
		panic(errors.Errorf("hwgraph: an output named %q already exists in module %q", name, m.name))
	}
	if _, ok := m.inputs[name]; ok {
		panic(errors.Errorf("hwgraph: an input named %q already exists in module %q", name, m.name))
	}
	m.outputs[name] = src
	m.outputOrder = append(m.outputOrder, name)
}

// Lit returns a constant signal of the given width. Lit panics if value
// does not fit into width bits.
//
func (m *Module) Lit(value uint64, width int) *Signal {
	m.checkOpen("literal")
	checkWidth("a literal", width)
	if !fits(value, width) {
		panic(errors.Errorf("hwgraph: value 0x%x does not fit into %d bit(s)", value, width))
	}
	s := m.newSignal(KindLit, width)
	s.value = value
	return s
}

// Low returns a 1-bit constant 0.
func (m *Module) Low() *Signal { return m.Lit(0, 1) }

// High returns a 1-bit constant 1.
func (m *Module) High() *Signal { return m.Lit(1, 1) }

// Mux returns whenTrue if the 1-bit signal sel is 1 and whenFalse
// otherwise. All three signals must belong to m and both arms must share a
// width.
//
func (m *Module) Mux(sel, whenTrue, whenFalse *Signal) *Signal {
	m.checkOpen("mux")
	if sel.mod != m || whenTrue.mod != m || whenFalse.mod != m {
		panic(errors.Errorf("hwgraph: cannot combine signals from different modules in a mux in module %q", m.name))
	}
	if sel.width != 1 {
		panic(errors.Errorf("hwgraph: mux condition must be 1 bit wide, got %d bit(s)", sel.width))
	}
	whenTrue.checkSameWidth(whenFalse)
	s := m.newSignal(KindMux, whenTrue.width)
	s.sel, s.a, s.b = sel, whenTrue, whenFalse
	return s
}

// Reg declares a register called name with the given width and default
// value. The default applies at reset and before any committed step. The
// register's next value must be assigned exactly once with DriveNext before
// validation.
//
func (m *Module) Reg(name string, width int, def uint64) *Register {
	m.checkOpen("register " + name)
	checkWidth("register "+name, width)
	if !fits(def, width) {
		panic(errors.Errorf("hwgraph: default value 0x%x of register %q does not fit into %d bit(s)",
			def, name, width))
	}
	m.claimName(name, "register")
	r := &Register{mod: m, name: name, width: width, def: def}
	v := m.newSignal(KindReg, width)
	v.reg = r
	r.value = v
	m.regs = append(m.regs, r)
	return r
}

// Mem declares a synchronous memory called name holding depth elements of
// elemWidth bits each. depth must be a power of two not smaller than 2; the
// address width is log2(depth).
//
func (m *Module) Mem(name string, elemWidth, depth int) *Mem {
	m.checkOpen("memory " + name)
	checkWidth("memory "+name, elemWidth)
	if depth < 2 || depth&(depth-1) != 0 {
		panic(errors.Errorf("hwgraph: memory %q depth must be a power of two >= 2, got %d", name, depth))
	}
	m.claimName(name, "memory")
	aw := 0
	for 1<<uint(aw) < depth {
		aw++
	}
	mem := &Mem{mod: m, name: name, elemWidth: elemWidth, addrWidth: aw, depth: depth}
	m.mems = append(m.mems, mem)
	return mem
}

// Instance places the module called moduleName (looked up in m's Context)
// inside m under the instance name instName. The instantiated module's
// graph becomes closed to further mutation.
//
func (m *Module) Instance(moduleName, instName string) *Instance {
	m.checkOpen("instance " + instName)
	target := m.ctx.FindModule(moduleName)
	if target == nil {
		panic(errors.Errorf("hwgraph: cannot instantiate %q in module %q: no such module in this context",
			moduleName, m.name))
	}
	if target == m {
		panic(errors.Errorf("hwgraph: module %q cannot instantiate itself", m.name))
	}
	m.claimName(instName, "instance")
	inst := &Instance{
		mod:    m,
		target: target,
		name:   instName,
		driven: make(map[string]*Signal),
		outs:   make(map[string]*Signal),
	}
	m.insts = append(m.insts, inst)
	target.frozen = true
	return inst
}

// InputNames returns the input port names in declaration order.
func (m *Module) InputNames() []string { return m.inputOrder }

// InputSignal returns the signal of the input port called name, or nil.
func (m *Module) InputSignal(name string) *Signal { return m.inputs[name] }

// OutputNames returns the output port names in declaration order.
func (m *Module) OutputNames() []string { return m.outputOrder }

// OutputSignal returns the signal driving the output port called name, or
// nil.
//
func (m *Module) OutputSignal(name string) *Signal { return m.outputs[name] }

// Registers returns the module's registers in declaration order.
func (m *Module) Registers() []*Register { return m.regs }

// Mems returns the module's memories in declaration order.
func (m *Module) Mems() []*Mem { return m.mems }

// Instances returns the module's instances in declaration order.
func (m *Module) Instances() []*Instance { return m.insts }
