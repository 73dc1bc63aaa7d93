package hwgraph

import (
	"github.com/pkg/errors"
)

// A ReadPort reads one memory location per step. When Enable is 1, Value
// reflects the element at Addr on the following step; when Enable is 0,
// Value holds the result of the last enabled read.
//
type ReadPort struct {
	Addr   *Signal
	Enable *Signal
	Value  *Signal
}

// A WritePort writes one memory location per step. When Enable is 1, the
// element at Addr takes the value of Data at the end of the step; reads of
// the same address in the same step still observe the old value.
//
type WritePort struct {
	Addr   *Signal
	Data   *Signal
	Enable *Signal
}

// A Mem is a synchronous addressable array of fixed-width elements with
// independent read and write ports.
//
// When several write ports target the same address in the same step, the
// port with the highest declaration index wins; both backends apply this
// rule identically.
//
// A Mem must have at least one read port and either a write port or initial
// contents; both conditions are checked at validation time.
//
type Mem struct {
	mod       *Module
	name      string
	elemWidth int
	addrWidth int
	depth     int
	reads     []*ReadPort
	writes    []*WritePort
	initial   []uint64
}

// Name returns the memory's name.
func (m *Mem) Name() string { return m.name }

// Module returns the module that owns m.
func (m *Mem) Module() *Module { return m.mod }

// ElemWidth returns the element width in bits.
func (m *Mem) ElemWidth() int { return m.elemWidth }

// AddrWidth returns the address width in bits (log2 of the depth).
func (m *Mem) AddrWidth() int { return m.addrWidth }

// Depth returns the number of elements.
func (m *Mem) Depth() int { return m.depth }

// ReadPorts returns the read ports in declaration order.
func (m *Mem) ReadPorts() []*ReadPort { return m.reads }

// WritePorts returns the write ports in declaration order.
func (m *Mem) WritePorts() []*WritePort { return m.writes }

// Initial returns the initial contents, or nil if none were specified.
func (m *Mem) Initial() []uint64 { return m.initial }

func (m *Mem) checkPortSignal(what string, s *Signal, width int) {
	if s.mod != m.mod {
		panic(errors.Errorf("hwgraph: %s of memory %q in module %q must come from the same module, got a signal from %q",
			what, m.name, m.mod.name, s.mod.name))
	}
	if s.width != width {
		panic(errors.Errorf("hwgraph: %s of memory %q must be %d bit(s) wide, got %d bit(s)",
			what, m.name, width, s.width))
	}
}

// ReadPortOf declares a read port with the given address and enable signals
// and returns the signal carrying the data read. The address must match the
// memory's address width and the enable must be 1 bit wide.
//
func (m *Mem) ReadPortOf(addr, enable *Signal) *Signal {
	m.mod.checkOpen("read port of memory " + m.name)
	m.checkPortSignal("read address", addr, m.addrWidth)
	m.checkPortSignal("read enable", enable, 1)
	v := m.mod.newSignal(KindMemRead, m.elemWidth)
	v.mem, v.port = m, len(m.reads)
	m.reads = append(m.reads, &ReadPort{Addr: addr, Enable: enable, Value: v})
	return v
}

// WritePortOf declares a write port with the given address, data and enable
// signals. The address and data widths must match the memory's
// configuration and the enable must be 1 bit wide.
//
func (m *Mem) WritePortOf(addr, data, enable *Signal) {
	m.mod.checkOpen("write port of memory " + m.name)
	m.checkPortSignal("write address", addr, m.addrWidth)
	m.checkPortSignal("write data", data, m.elemWidth)
	m.checkPortSignal("write enable", enable, 1)
	m.writes = append(m.writes, &WritePort{Addr: addr, Data: data, Enable: enable})
}

// InitialContents sets the memory's initial contents. values must hold
// exactly Depth elements, each fitting into the element width. Initial
// contents are applied at reset; they are required for memories without a
// write port.
//
func (m *Mem) InitialContents(values []uint64) {
	m.mod.checkOpen("initial contents of memory " + m.name)
	if m.initial != nil {
		panic(errors.Errorf("hwgraph: memory %q in module %q already has initial contents", m.name, m.mod.name))
	}
	if len(values) != m.depth {
		panic(errors.Errorf("hwgraph: memory %q requires %d initial element(s), got %d",
			m.name, m.depth, len(values)))
	}
	for i, v := range values {
		if !fits(v, m.elemWidth) {
			panic(errors.Errorf("hwgraph: initial element %d of memory %q has value 0x%x which does not fit into %d bit(s)",
				i, m.name, v, m.elemWidth))
		}
	}
	m.initial = append([]uint64(nil), values...)
}
