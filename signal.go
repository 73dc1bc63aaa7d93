package hwgraph

import (
	"fmt"

	"github.com/pkg/errors"
)

// Signal width bounds. The upper bound keeps generated simulators on native
// uint64 arithmetic; wider values must be split by the user.
const (
	MinWidth = 1
	MaxWidth = 64
)

// Kind discriminates the variants of a Signal.
type Kind uint8

// Signal kinds.
const (
	KindLit Kind = iota
	KindInput
	KindReg
	KindUnary
	KindBinary
	KindCmp
	KindBits
	KindRepeat
	KindConcat
	KindMux
	KindMemRead
	KindInstOut
)

func (k Kind) String() string {
	switch k {
	case KindLit:
		return "literal"
	case KindInput:
		return "input"
	case KindReg:
		return "register"
	case KindUnary:
		return "unary op"
	case KindBinary:
		return "binary op"
	case KindCmp:
		return "comparison"
	case KindBits:
		return "bit range"
	case KindRepeat:
		return "repeat"
	case KindConcat:
		return "concat"
	case KindMux:
		return "mux"
	case KindMemRead:
		return "mem read port"
	case KindInstOut:
		return "instance output"
	}
	return "unknown"
}

// Op identifies the operator of a KindUnary, KindBinary or KindCmp signal.
type Op uint8

// Operators.
const (
	OpNot Op = iota
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpMulS
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSra
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpLtS
	OpLeS
	OpGtS
	OpGeS
)

var opNames = [...]string{
	OpNot: "not", OpNeg: "neg",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpMulS: "muls",
	OpAnd: "and", OpOr: "or", OpXor: "xor",
	OpShl: "shl", OpShr: "shr", OpSra: "sra",
	OpEq: "eq", OpNe: "ne",
	OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpLtS: "lts", OpLeS: "les", OpGtS: "gts", OpGeS: "ges",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op?"
}

// Signed reports whether op is one of the signed comparison or arithmetic
// variants.
//
func (op Op) Signed() bool {
	switch op {
	case OpMulS, OpSra, OpLtS, OpLeS, OpGtS, OpGeS:
		return true
	}
	return false
}

// A Signal is an immutable, fixed-width node in a module's expression
// graph. Signals are created through Module and Signal builder methods and
// owned by the module's Context; they are never combined across modules
// except through instance bindings.
//
type Signal struct {
	mod   *Module
	id    int
	kind  Kind
	width int

	op     Op
	a, b   *Signal // operands; for a mux, the whenTrue/whenFalse arms
	sel    *Signal // mux condition
	value  uint64  // KindLit
	name   string  // KindInput: port name; KindInstOut: output name
	hi, lo int     // KindBits
	count  int     // KindRepeat
	reg    *Register
	mem    *Mem
	port   int // KindMemRead: read port index
	inst   *Instance
}

// Kind returns the variant of s.
func (s *Signal) Kind() Kind { return s.kind }

// Width returns the bit width of s.
func (s *Signal) Width() int { return s.width }

// Module returns the module that owns s.
func (s *Signal) Module() *Module { return s.mod }

// ID returns the creation index of s within its module. IDs are stable and
// unique per module; backends use them to derive names.
//
func (s *Signal) ID() int { return s.id }

// Op returns the operator of a KindUnary, KindBinary or KindCmp signal.
func (s *Signal) Op() Op { return s.op }

// Lhs returns the first operand (the sole operand of unary ops, the shifted
// value of shifts, the whenTrue arm of a mux).
//
func (s *Signal) Lhs() *Signal { return s.a }

// Rhs returns the second operand (the shift amount of shifts, the whenFalse
// arm of a mux).
//
func (s *Signal) Rhs() *Signal { return s.b }

// Sel returns the condition of a KindMux signal.
func (s *Signal) Sel() *Signal { return s.sel }

// LitValue returns the value of a KindLit signal.
func (s *Signal) LitValue() uint64 { return s.value }

// Name returns the port name of a KindInput signal or the output name of a
// KindInstOut signal.
//
func (s *Signal) Name() string { return s.name }

// BitsRange returns the inclusive bounds of a KindBits signal.
func (s *Signal) BitsRange() (hi, lo int) { return s.hi, s.lo }

// RepeatCount returns the repetition count of a KindRepeat signal.
func (s *Signal) RepeatCount() int { return s.count }

// Reg returns the register backing a KindReg signal.
func (s *Signal) Reg() *Register { return s.reg }

// ReadPort returns the memory and read port index backing a KindMemRead
// signal.
//
func (s *Signal) ReadPort() (*Mem, int) { return s.mem, s.port }

// Inst returns the instance of a KindInstOut signal.
func (s *Signal) Inst() *Instance { return s.inst }

// Operands returns the signals that s structurally depends on within its
// own module. Register values and memory read port values report no
// operands: their drive edges are tracked out-of-band and excluded from
// combinational traversal.
//
func (s *Signal) Operands() []*Signal {
	switch s.kind {
	case KindUnary, KindBits, KindRepeat:
		return []*Signal{s.a}
	case KindBinary, KindCmp, KindConcat:
		return []*Signal{s.a, s.b}
	case KindMux:
		return []*Signal{s.sel, s.a, s.b}
	}
	return nil
}

// String describes s for diagnostics.
func (s *Signal) String() string {
	var d string
	switch s.kind {
	case KindLit:
		d = fmt.Sprintf("literal 0x%x", s.value)
	case KindInput:
		d = fmt.Sprintf("input %q", s.name)
	case KindReg:
		d = fmt.Sprintf("register %q", s.reg.name)
	case KindUnary, KindBinary, KindCmp:
		d = s.op.String()
	case KindBits:
		d = fmt.Sprintf("bits [%d:%d]", s.hi, s.lo)
	case KindMemRead:
		d = fmt.Sprintf("read port %d of memory %q", s.port, s.mem.name)
	case KindInstOut:
		d = fmt.Sprintf("output %q of instance %q", s.name, s.inst.name)
	default:
		d = s.kind.String()
	}
	return fmt.Sprintf("%s (%d bit(s))", d, s.width)
}

func checkWidth(what string, w int) {
	if w < MinWidth || w > MaxWidth {
		panic(errors.Errorf("hwgraph: cannot create %s with %d bit(s); signal widths must be in [%d, %d]",
			what, w, MinWidth, MaxWidth))
	}
}

// fits reports whether v fits into w bits.
func fits(v uint64, w int) bool {
	return w >= 64 || v < 1<<uint(w)
}

func (s *Signal) checkSameModule(rhs *Signal) {
	if s.mod != rhs.mod {
		panic(errors.Errorf("hwgraph: cannot combine signals from different modules (%q and %q)",
			s.mod.name, rhs.mod.name))
	}
}

func (s *Signal) checkSameWidth(rhs *Signal) {
	if s.width != rhs.width {
		panic(errors.Errorf("hwgraph: signals have different bit widths (%d and %d)",
			s.width, rhs.width))
	}
}

func maxInt(a, b int) int {
	if a >= b {
		return a
	}
	return b
}

func (s *Signal) binary(rhs *Signal, op Op, width int) *Signal {
	n := s.mod.newSignal(KindBinary, width)
	n.op, n.a, n.b = op, s, rhs
	return n
}

// Not returns a signal whose bits are the bitwise complement of s. The
// width is unchanged.
//
func (s *Signal) Not() *Signal {
	n := s.mod.newSignal(KindUnary, s.width)
	n.op, n.a = OpNot, s
	return n
}

// Neg returns the two's-complement negation of s. The width is unchanged,
// so the result wraps modulo 2^width.
//
func (s *Signal) Neg() *Signal {
	n := s.mod.newSignal(KindUnary, s.width)
	n.op, n.a = OpNeg, s
	return n
}

// Bit returns the single bit of s at index i, where index 0 is the least
// significant bit. Bit panics if i is out of range.
//
func (s *Signal) Bit(i int) *Signal {
	return s.Bits(i, i)
}

// Bits returns the contiguous bits of s from lo (least significant) to hi
// (most significant), inclusive. Bits panics if the range is empty or out
// of bounds.
//
func (s *Signal) Bits(hi, lo int) *Signal {
	if lo < 0 || lo >= s.width {
		panic(errors.Errorf("hwgraph: bit range lower bound %d out of range [0, %d] for a %d-bit signal",
			lo, s.width-1, s.width))
	}
	if hi >= s.width {
		panic(errors.Errorf("hwgraph: bit range upper bound %d out of range [0, %d] for a %d-bit signal",
			hi, s.width-1, s.width))
	}
	if lo > hi {
		panic(errors.Errorf("hwgraph: bit range lower bound %d greater than upper bound %d", lo, hi))
	}
	n := s.mod.newSignal(KindBits, hi-lo+1)
	n.a, n.hi, n.lo = s, hi, lo
	return n
}

// Repeat returns s repeated count times. The result width is
// s.Width()*count and must not exceed MaxWidth.
//
func (s *Signal) Repeat(count int) *Signal {
	w := s.width * count
	checkWidth(fmt.Sprintf("a %d-bit signal repeated %d time(s)", s.width, count), w)
	n := s.mod.newSignal(KindRepeat, w)
	n.a, n.count = s, count
	return n
}

// Concat returns s concatenated with rhs, with s as the most significant
// bits. Both signals must belong to the same module; the result width is
// the sum of both widths and must not exceed MaxWidth.
//
func (s *Signal) Concat(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	w := s.width + rhs.width
	checkWidth(fmt.Sprintf("a concatenation of %d and %d bit(s)", s.width, rhs.width), w)
	n := s.mod.newSignal(KindConcat, w)
	n.a, n.b = s, rhs
	return n
}

// Add returns the unsigned sum of s and rhs. The result is one bit wider
// than the widest operand; the extra bit is the carry out. Operands of
// different widths are zero-extended.
//
func (s *Signal) Add(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	w := maxInt(s.width, rhs.width) + 1
	checkWidth("a sum", w)
	return s.binary(rhs, OpAdd, w)
}

// Sub returns the difference of s and rhs. The result width is the widest
// operand width; the result wraps on underflow. Operands of different
// widths are zero-extended.
//
func (s *Signal) Sub(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	return s.binary(rhs, OpSub, maxInt(s.width, rhs.width))
}

// Mul returns the unsigned product of s and rhs. The result width is the
// sum of the operand widths and must not exceed MaxWidth.
//
func (s *Signal) Mul(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	w := s.width + rhs.width
	checkWidth(fmt.Sprintf("a product of %d and %d bit(s)", s.width, rhs.width), w)
	return s.binary(rhs, OpMul, w)
}

// MulSigned returns the two's-complement product of s and rhs. The result
// width is the sum of the operand widths and must not exceed MaxWidth.
//
func (s *Signal) MulSigned(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	w := s.width + rhs.width
	checkWidth(fmt.Sprintf("a product of %d and %d bit(s)", s.width, rhs.width), w)
	return s.binary(rhs, OpMulS, w)
}

// And returns the bitwise and of s and rhs. Operands must share a width.
func (s *Signal) And(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	s.checkSameWidth(rhs)
	return s.binary(rhs, OpAnd, s.width)
}

// Or returns the bitwise or of s and rhs. Operands must share a width.
func (s *Signal) Or(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	s.checkSameWidth(rhs)
	return s.binary(rhs, OpOr, s.width)
}

// Xor returns the bitwise xor of s and rhs. Operands must share a width.
func (s *Signal) Xor(rhs *Signal) *Signal {
	s.checkSameModule(rhs)
	s.checkSameWidth(rhs)
	return s.binary(rhs, OpXor, s.width)
}

// Shl returns s shifted left by amount bits, filling with zeroes. The
// amount is an unsigned signal and may be narrower (or wider) than s;
// amounts greater than or equal to the width yield zero.
//
func (s *Signal) Shl(amount *Signal) *Signal {
	s.checkSameModule(amount)
	return s.binary(amount, OpShl, s.width)
}

// Shr returns s shifted right by amount bits, filling with zeroes. See Shl
// for the amount rules.
//
func (s *Signal) Shr(amount *Signal) *Signal {
	s.checkSameModule(amount)
	return s.binary(amount, OpShr, s.width)
}

// Sra returns s shifted right by amount bits, sign-extending from the most
// significant bit of s. Amounts greater than or equal to the width yield
// all sign bits.
//
func (s *Signal) Sra(amount *Signal) *Signal {
	s.checkSameModule(amount)
	return s.binary(amount, OpSra, s.width)
}

func (s *Signal) compare(rhs *Signal, op Op) *Signal {
	s.checkSameModule(rhs)
	s.checkSameWidth(rhs)
	n := s.mod.newSignal(KindCmp, 1)
	n.op, n.a, n.b = op, s, rhs
	return n
}

// Eq returns the 1-bit result of an equality comparison of s and rhs.
func (s *Signal) Eq(rhs *Signal) *Signal { return s.compare(rhs, OpEq) }

// Ne returns the 1-bit result of an inequality comparison of s and rhs.
func (s *Signal) Ne(rhs *Signal) *Signal { return s.compare(rhs, OpNe) }

// Lt returns the 1-bit result of an unsigned < comparison of s and rhs.
func (s *Signal) Lt(rhs *Signal) *Signal { return s.compare(rhs, OpLt) }

// Le returns the 1-bit result of an unsigned <= comparison of s and rhs.
func (s *Signal) Le(rhs *Signal) *Signal { return s.compare(rhs, OpLe) }

// Gt returns the 1-bit result of an unsigned > comparison of s and rhs.
func (s *Signal) Gt(rhs *Signal) *Signal { return s.compare(rhs, OpGt) }

// Ge returns the 1-bit result of an unsigned >= comparison of s and rhs.
func (s *Signal) Ge(rhs *Signal) *Signal { return s.compare(rhs, OpGe) }

// LtSigned returns the 1-bit result of a signed < comparison of s and rhs.
func (s *Signal) LtSigned(rhs *Signal) *Signal { return s.compare(rhs, OpLtS) }

// LeSigned returns the 1-bit result of a signed <= comparison of s and rhs.
func (s *Signal) LeSigned(rhs *Signal) *Signal { return s.compare(rhs, OpLeS) }

// GtSigned returns the 1-bit result of a signed > comparison of s and rhs.
func (s *Signal) GtSigned(rhs *Signal) *Signal { return s.compare(rhs, OpGtS) }

// GeSigned returns the 1-bit result of a signed >= comparison of s and rhs.
func (s *Signal) GeSigned(rhs *Signal) *Signal { return s.compare(rhs, OpGeS) }

// Mux treats s as a 1-bit condition and selects whenTrue when s is 1,
// whenFalse when s is 0. It is shorthand for Module.Mux.
//
func (s *Signal) Mux(whenTrue, whenFalse *Signal) *Signal {
	return s.mod.Mux(s, whenTrue, whenFalse)
}
