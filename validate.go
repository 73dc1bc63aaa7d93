package hwgraph

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// A Path identifies one occurrence of a module in the elaborated hierarchy:
// the root module, or a module reached through a chain of instances. The
// same module may appear under several paths; each occurrence has its own
// state in a simulation.
//
type Path struct {
	parent   *Path
	inst     *Instance // nil for the root path
	mod      *Module
	children []*Path
	byInst   map[*Instance]*Path
}

// Parent returns the enclosing path, or nil for the root path.
func (p *Path) Parent() *Path { return p.parent }

// Inst returns the instance this path was reached through, or nil for the
// root path.
//
func (p *Path) Inst() *Instance { return p.inst }

// Module returns the module occurring at this path.
func (p *Path) Module() *Module { return p.mod }

// Children returns the paths of this path's instances in declaration order.
func (p *Path) Children() []*Path { return p.children }

// Child returns the path reached through inst, or nil.
func (p *Path) Child(inst *Instance) *Path { return p.byInst[inst] }

// Name returns a dotted path name such as "top.alu.adder".
func (p *Path) Name() string {
	if p.parent == nil {
		return p.mod.name
	}
	return p.parent.Name() + "." + p.inst.name
}

// A Node is one signal at one path of the elaborated hierarchy.
type Node struct {
	Path *Path
	Sig  *Signal
}

func (n Node) String() string {
	return fmt.Sprintf("%s: %s", n.Path.Name(), n.Sig)
}

// A Plan is the result of validating a module: the set of modules it
// depends on, a per-module topological order of signals, and the fully
// elaborated hierarchy with a global topological order of nodes. Both
// backends consume a Plan instead of re-deriving any of this.
//
type Plan struct {
	root     *Module
	rootPath *Path
	paths    []*Path
	modules  []*Module
	local    map[*Module][]*Signal
	nodes    []Node
	index    map[Node]int
}

// Root returns the validated module.
func (p *Plan) Root() *Module { return p.root }

// RootPath returns the path of the root module.
func (p *Plan) RootPath() *Path { return p.rootPath }

// Paths returns every path of the elaborated hierarchy, parents before
// children.
//
func (p *Plan) Paths() []*Path { return p.paths }

// Modules returns the distinct modules of the hierarchy in dependency
// order: instantiated modules before their instantiators, the root last.
//
func (p *Plan) Modules() []*Module { return p.modules }

// Local returns m's signals in dependency order: every signal appears
// after its operands. Register values, memory read values and instance
// outputs count as leaves.
//
func (p *Plan) Local(m *Module) []*Signal { return p.local[m] }

// Nodes returns the elaborated nodes in dependency order across the whole
// hierarchy.
//
func (p *Plan) Nodes() []Node { return p.nodes }

// NodeIndex returns the position of n in Nodes, or -1 if n is not part of
// the plan (an unused signal).
//
func (p *Plan) NodeIndex(n Node) int {
	if i, ok := p.index[n]; ok {
		return i
	}
	return -1
}

// Validate checks m and every module it instantiates, directly or not, and
// returns the Plan both backends generate from. It reports recursive
// instantiation, undriven registers and instance inputs, memories without
// read ports or without any value source, and combinational loops, local
// or through instance boundaries.
//
// Validate closes every checked module to further mutation. The result is
// cached on m; repeated calls return the same Plan.
//
func Validate(m *Module) (*Plan, error) {
	if m.plan != nil {
		return m.plan, nil
	}
	mods, err := collectModules(m)
	if err != nil {
		return nil, err
	}
	for _, mod := range mods {
		mod.frozen = true
	}
	for _, mod := range mods {
		if err := checkModule(mod); err != nil {
			return nil, err
		}
	}
	p := &Plan{
		root:    m,
		modules: mods,
		local:   make(map[*Module][]*Signal, len(mods)),
		index:   make(map[Node]int),
	}
	for _, mod := range mods {
		order, err := localOrder(mod)
		if err != nil {
			return nil, err
		}
		p.local[mod] = order
	}
	if err := p.elaborate(); err != nil {
		return nil, err
	}
	m.plan = p
	return p, nil
}

// collectModules walks the instance graph from root and returns the
// distinct modules in dependency order, or an error on recursive
// instantiation.
//
func collectModules(root *Module) ([]*Module, error) {
	seen := make(map[*Module]bool)
	onStack := make(map[*Module]bool)
	var stack []*Module
	var order []*Module

	var visit func(m *Module) error
	visit = func(m *Module) error {
		if onStack[m] {
			i := 0
			for stack[i] != m {
				i++
			}
			names := make([]string, 0, len(stack)-i+1)
			for _, x := range stack[i:] {
				names = append(names, x.name)
			}
			names = append(names, m.name)
			return errors.Errorf("hwgraph: recursive instantiation: %s", strings.Join(names, " -> "))
		}
		if seen[m] {
			return nil
		}
		seen[m], onStack[m] = true, true
		stack = append(stack, m)
		for _, inst := range m.insts {
			if err := visit(inst.target); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		onStack[m] = false
		order = append(order, m)
		return nil
	}
	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

func checkModule(m *Module) error {
	for _, r := range m.regs {
		if r.next == nil {
			return errors.Errorf("hwgraph: module %q: register %q has no next-value driver", m.name, r.name)
		}
	}
	for _, mem := range m.mems {
		if len(mem.reads) == 0 {
			return errors.Errorf("hwgraph: module %q: memory %q has no read ports", m.name, mem.name)
		}
		if len(mem.writes) == 0 && mem.initial == nil {
			return errors.Errorf("hwgraph: module %q: memory %q has neither write ports nor initial contents",
				m.name, mem.name)
		}
	}
	for _, inst := range m.insts {
		for _, name := range inst.target.inputOrder {
			if inst.driven[name] == nil {
				return errors.Errorf("hwgraph: module %q: input %q of instance %q (module %q) is not driven",
					m.name, name, inst.name, inst.target.name)
			}
		}
	}
	return nil
}

type color uint8

const (
	white color = iota
	grey
	black
)

// moduleSinks returns the signals a module must be able to compute each
// step: output drivers, register next values, memory port operands and
// instance input bindings.
//
func moduleSinks(m *Module) []*Signal {
	var sinks []*Signal
	for _, name := range m.outputOrder {
		sinks = append(sinks, m.outputs[name])
	}
	for _, r := range m.regs {
		sinks = append(sinks, r.next)
	}
	for _, mem := range m.mems {
		for _, rp := range mem.reads {
			sinks = append(sinks, rp.Addr, rp.Enable)
		}
		for _, wp := range mem.writes {
			sinks = append(sinks, wp.Addr, wp.Data, wp.Enable)
		}
	}
	for _, inst := range m.insts {
		for _, name := range inst.target.inputOrder {
			sinks = append(sinks, inst.driven[name])
		}
	}
	return sinks
}

// localOrder returns m's reachable signals in dependency order, or an
// error describing a combinational loop within m.
//
func localOrder(m *Module) ([]*Signal, error) {
	colors := make(map[*Signal]color, len(m.signals))
	var order []*Signal

	// visit returns the members of a loop while unwinding; the loop is
	// complete once its first signal reappears at the end.
	var visit func(s *Signal) []*Signal
	visit = func(s *Signal) []*Signal {
		switch colors[s] {
		case black:
			return nil
		case grey:
			return []*Signal{s}
		}
		colors[s] = grey
		for _, d := range s.Operands() {
			if cyc := visit(d); cyc != nil {
				if len(cyc) == 1 || cyc[len(cyc)-1] != cyc[0] {
					cyc = append(cyc, s)
				}
				return cyc
			}
		}
		colors[s] = black
		order = append(order, s)
		return nil
	}
	for _, s := range moduleSinks(m) {
		if cyc := visit(s); cyc != nil {
			return nil, errors.Errorf("hwgraph: module %q: combinational loop: %s",
				m.name, describeCycle(cyc))
		}
	}
	return order, nil
}

func describeCycle(cyc []*Signal) string {
	parts := make([]string, len(cyc))
	for i, s := range cyc {
		parts[len(cyc)-1-i] = s.String()
	}
	return strings.Join(parts, " -> ")
}

// elaborate builds the path tree and the global topological order of
// nodes. Instance boundaries become edges here: an input node depends on
// the binding in the parent path, an instance output node depends on the
// target's output driver in the child path. Loops that are acyclic within
// each module but close through instances surface at this stage.
//
func (p *Plan) elaborate() error {
	var build func(parent *Path, inst *Instance, m *Module) *Path
	build = func(parent *Path, inst *Instance, m *Module) *Path {
		path := &Path{parent: parent, inst: inst, mod: m, byInst: make(map[*Instance]*Path)}
		p.paths = append(p.paths, path)
		for _, child := range m.insts {
			cp := build(path, child, child.target)
			path.children = append(path.children, cp)
			path.byInst[child] = cp
		}
		return path
	}
	p.rootPath = build(nil, nil, p.root)

	colors := make(map[Node]color)
	var visit func(n Node) []Node
	visit = func(n Node) []Node {
		switch colors[n] {
		case black:
			return nil
		case grey:
			return []Node{n}
		}
		colors[n] = grey
		for _, d := range nodeDeps(n) {
			if cyc := visit(d); cyc != nil {
				if len(cyc) == 1 || cyc[len(cyc)-1] != cyc[0] {
					cyc = append(cyc, n)
				}
				return cyc
			}
		}
		colors[n] = black
		p.index[n] = len(p.nodes)
		p.nodes = append(p.nodes, n)
		return nil
	}
	for _, path := range p.paths {
		for _, s := range moduleSinks(path.mod) {
			if cyc := visit(Node{path, s}); cyc != nil {
				return errors.Errorf("hwgraph: combinational loop through instances: %s",
					describeNodeCycle(cyc))
			}
		}
	}
	return nil
}

// nodeDeps returns the nodes n's value is computed from. Register values
// and memory read values stay leaves: their updates happen at commit time.
//
func nodeDeps(n Node) []Node {
	s := n.Sig
	switch s.kind {
	case KindInput:
		if n.Path.parent != nil {
			return []Node{{n.Path.parent, n.Path.inst.driven[s.name]}}
		}
		return nil
	case KindInstOut:
		child := n.Path.Child(s.inst)
		return []Node{{child, s.inst.target.outputs[s.name]}}
	}
	ops := s.Operands()
	if len(ops) == 0 {
		return nil
	}
	deps := make([]Node, len(ops))
	for i, d := range ops {
		deps[i] = Node{n.Path, d}
	}
	return deps
}

func describeNodeCycle(cyc []Node) string {
	parts := make([]string, len(cyc))
	for i, n := range cyc {
		parts[len(cyc)-1-i] = n.String()
	}
	return strings.Join(parts, " -> ")
}
