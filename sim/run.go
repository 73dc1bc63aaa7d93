package sim

import (
	"github.com/pkg/errors"

	"github.com/hwgraph/hwgraph"
)

type regKey struct {
	path *hwgraph.Path
	reg  *hwgraph.Register
}

type memKey struct {
	path *hwgraph.Path
	mem  *hwgraph.Mem
}

type portKey struct {
	path *hwgraph.Path
	mem  *hwgraph.Mem
	port int
}

// A Simulator executes a validated design in process, without going
// through generated code. It implements the exact semantics the generated
// simulators compile to and exists so that designs can be exercised
// directly from tests.
//
// The protocol mirrors the generated API: Poke inputs, Prop, Peek
// outputs, Step to advance one cycle.
//
type Simulator struct {
	plan *hwgraph.Plan
	in   map[string]uint64
	vals []uint64
	regs map[regKey]uint64
	mems map[memKey][]uint64
	rds  map[portKey]uint64
}

// New returns a Simulator for m's validated design, in its reset state.
func New(m *hwgraph.Module) (*Simulator, error) {
	plan, err := hwgraph.Validate(m)
	if err != nil {
		return nil, errors.Wrapf(err, "sim: cannot simulate module %q", m.Name())
	}
	s := &Simulator{
		plan: plan,
		in:   make(map[string]uint64),
		vals: make([]uint64, len(plan.Nodes())),
		regs: make(map[regKey]uint64),
		mems: make(map[memKey][]uint64),
		rds:  make(map[portKey]uint64),
	}
	for _, path := range plan.Paths() {
		for _, mem := range path.Module().Mems() {
			s.mems[memKey{path, mem}] = make([]uint64, mem.Depth())
		}
	}
	s.Reset()
	return s, nil
}

// Reset restores every register to its default value, every memory to its
// initial contents (or zeroes), clears the read port outputs and
// propagates.
//
func (s *Simulator) Reset() {
	for _, path := range s.plan.Paths() {
		for _, r := range path.Module().Registers() {
			s.regs[regKey{path, r}] = r.Default()
		}
		for _, mem := range path.Module().Mems() {
			contents := s.mems[memKey{path, mem}]
			init := mem.Initial()
			for i := range contents {
				if init != nil {
					contents[i] = init[i]
				} else {
					contents[i] = 0
				}
			}
			for pi := range mem.ReadPorts() {
				s.rds[portKey{path, mem, pi}] = 0
			}
		}
	}
	s.Prop()
}

// Poke sets the root input called name. Poke panics if the input does not
// exist or if v does not fit its width.
//
func (s *Simulator) Poke(name string, v uint64) {
	in := s.plan.Root().InputSignal(name)
	if in == nil {
		panic(errors.Errorf("sim: module %q has no input %q", s.plan.Root().Name(), name))
	}
	if v&^mask(in.Width()) != 0 {
		panic(errors.Errorf("sim: value 0x%x does not fit into input %q (%d bit(s))", v, name, in.Width()))
	}
	s.in[name] = v
}

// Peek returns the value of the root output called name as of the last
// propagation. Peek panics if the output does not exist.
//
func (s *Simulator) Peek(name string) uint64 {
	out := s.plan.Root().OutputSignal(name)
	if out == nil {
		panic(errors.Errorf("sim: module %q has no output %q", s.plan.Root().Name(), name))
	}
	return s.val(s.plan.RootPath(), out)
}

func (s *Simulator) val(path *hwgraph.Path, sig *hwgraph.Signal) uint64 {
	return s.vals[s.plan.NodeIndex(hwgraph.Node{Path: path, Sig: sig})]
}

// Prop propagates the current inputs and state through the combinational
// graph.
//
func (s *Simulator) Prop() {
	for i, n := range s.plan.Nodes() {
		s.vals[i] = s.eval(n)
	}
}

// Step advances one cycle: propagate, commit registers and memories on
// the clock edge, then propagate again so that outputs reflect the new
// state.
//
func (s *Simulator) Step() {
	s.Prop()
	s.commit()
	s.Prop()
}

func (s *Simulator) eval(n hwgraph.Node) uint64 {
	sig := n.Sig
	w := sig.Width()
	switch sig.Kind() {
	case hwgraph.KindLit:
		return sig.LitValue()
	case hwgraph.KindInput:
		if parent := n.Path.Parent(); parent != nil {
			return s.val(parent, n.Path.Inst().Driven(sig.Name()))
		}
		return s.in[sig.Name()]
	case hwgraph.KindReg:
		return s.regs[regKey{n.Path, sig.Reg()}]
	case hwgraph.KindMemRead:
		mem, port := sig.ReadPort()
		return s.rds[portKey{n.Path, mem, port}]
	case hwgraph.KindInstOut:
		child := n.Path.Child(sig.Inst())
		return s.val(child, sig.Inst().Target().OutputSignal(sig.Name()))
	case hwgraph.KindBits:
		hi, lo := sig.BitsRange()
		return (s.val(n.Path, sig.Lhs()) >> uint(lo)) & mask(hi-lo+1)
	case hwgraph.KindRepeat:
		a := s.val(n.Path, sig.Lhs())
		aw := sig.Lhs().Width()
		var v uint64
		for i := 0; i < sig.RepeatCount(); i++ {
			v |= a << uint(i*aw)
		}
		return v
	case hwgraph.KindConcat:
		return s.val(n.Path, sig.Lhs())<<uint(sig.Rhs().Width()) | s.val(n.Path, sig.Rhs())
	case hwgraph.KindMux:
		if s.val(n.Path, sig.Sel()) != 0 {
			return s.val(n.Path, sig.Lhs())
		}
		return s.val(n.Path, sig.Rhs())
	case hwgraph.KindUnary:
		a := s.val(n.Path, sig.Lhs())
		switch sig.Op() {
		case hwgraph.OpNot:
			return ^a & mask(w)
		case hwgraph.OpNeg:
			return -a & mask(w)
		}
	case hwgraph.KindBinary:
		a, b := s.val(n.Path, sig.Lhs()), s.val(n.Path, sig.Rhs())
		switch sig.Op() {
		case hwgraph.OpAdd:
			return (a + b) & mask(w)
		case hwgraph.OpSub:
			return (a - b) & mask(w)
		case hwgraph.OpMul:
			return (a * b) & mask(w)
		case hwgraph.OpMulS:
			return uint64(sext(a, sig.Lhs().Width())*sext(b, sig.Rhs().Width())) & mask(w)
		case hwgraph.OpAnd:
			return a & b
		case hwgraph.OpOr:
			return a | b
		case hwgraph.OpXor:
			return a ^ b
		case hwgraph.OpShl:
			if b >= 64 {
				return 0
			}
			return a << uint(b) & mask(w)
		case hwgraph.OpShr:
			if b >= 64 {
				return 0
			}
			return a >> uint(b)
		case hwgraph.OpSra:
			amt := b
			if amt > 63 {
				amt = 63
			}
			return uint64(sext(a, w)>>uint(amt)) & mask(w)
		}
	case hwgraph.KindCmp:
		a, b := s.val(n.Path, sig.Lhs()), s.val(n.Path, sig.Rhs())
		aw := sig.Lhs().Width()
		switch sig.Op() {
		case hwgraph.OpEq:
			return b2u(a == b)
		case hwgraph.OpNe:
			return b2u(a != b)
		case hwgraph.OpLt:
			return b2u(a < b)
		case hwgraph.OpLe:
			return b2u(a <= b)
		case hwgraph.OpGt:
			return b2u(a > b)
		case hwgraph.OpGe:
			return b2u(a >= b)
		case hwgraph.OpLtS:
			return b2u(sext(a, aw) < sext(b, aw))
		case hwgraph.OpLeS:
			return b2u(sext(a, aw) <= sext(b, aw))
		case hwgraph.OpGtS:
			return b2u(sext(a, aw) > sext(b, aw))
		case hwgraph.OpGeS:
			return b2u(sext(a, aw) >= sext(b, aw))
		}
	}
	panic(errors.Errorf("sim: cannot evaluate %s", sig))
}

// commit applies the clock edge: read ports sample before any write so
// that same-address collisions observe the old contents, writes apply in
// declaration order so the highest-index port wins, and registers take
// their next values last.
//
func (s *Simulator) commit() {
	for _, path := range s.plan.Paths() {
		for _, mem := range path.Module().Mems() {
			contents := s.mems[memKey{path, mem}]
			for pi, rp := range mem.ReadPorts() {
				if s.val(path, rp.Enable) != 0 {
					s.rds[portKey{path, mem, pi}] = contents[s.val(path, rp.Addr)]
				}
			}
			for _, wp := range mem.WritePorts() {
				if s.val(path, wp.Enable) != 0 {
					contents[s.val(path, wp.Addr)] = s.val(path, wp.Data)
				}
			}
		}
		for _, r := range path.Module().Registers() {
			s.regs[regKey{path, r}] = s.val(path, r.Next())
		}
	}
}
