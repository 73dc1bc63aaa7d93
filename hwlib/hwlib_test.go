package hwlib_test

import (
	"testing"

	hw "github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/hwlib"
	"github.com/hwgraph/hwgraph/sim"
)

func newSim(t *testing.T, m *hw.Module) *sim.Simulator {
	t.Helper()
	s, err := sim.New(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func Test_adder(t *testing.T) {
	s := newSim(t, hwlib.Adder(hw.NewContext(), "add", 8))
	s.Poke("a", 0xc0)
	s.Poke("b", 0x40)
	s.Prop()
	if got := s.Peek("s"); got != 0x100 {
		t.Errorf("s = %#x, expected 0x100", got)
	}
}

func Test_counter_enable(t *testing.T) {
	s := newSim(t, hwlib.Counter(hw.NewContext(), "counter", 4))
	s.Poke("en", 1)
	for i := 0; i < 5; i++ {
		s.Step()
	}
	if got := s.Peek("count"); got != 5 {
		t.Fatalf("count = %d, expected 5", got)
	}
	s.Poke("en", 0)
	s.Step()
	s.Step()
	if got := s.Peek("count"); got != 5 {
		t.Fatalf("count = %d with enable low, expected 5", got)
	}
}

func Test_shift_register(t *testing.T) {
	s := newSim(t, hwlib.ShiftRegister(hw.NewContext(), "sr", 4))
	for _, bit := range []uint64{1, 0, 1, 1} {
		s.Poke("in", bit)
		s.Step()
	}
	if got := s.Peek("q"); got != 0xb {
		t.Fatalf("q = %#x, expected 0xb", got)
	}
	if got := s.Peek("out"); got != 1 {
		t.Fatalf("out = %d, expected 1", got)
	}
}

func Test_rom(t *testing.T) {
	s := newSim(t, hwlib.Rom(hw.NewContext(), "rom", 16, []uint64{0xdead, 0xbeef}))
	s.Poke("addr", 1)
	s.Poke("en", 1)
	s.Step()
	if got := s.Peek("data"); got != 0xbeef {
		t.Fatalf("data = %#x, expected 0xbeef", got)
	}
}

func Test_register_file(t *testing.T) {
	s := newSim(t, hwlib.RegisterFile(hw.NewContext(), "rf", 8, 8))
	s.Poke("waddr", 3)
	s.Poke("wdata", 0x42)
	s.Poke("we", 1)
	s.Poke("raddr", 3)
	s.Poke("re", 1)
	s.Step() // read still sees the old contents
	if got := s.Peek("rdata"); got != 0 {
		t.Fatalf("rdata = %#x, expected 0", got)
	}
	s.Step()
	if got := s.Peek("rdata"); got != 0x42 {
		t.Fatalf("rdata = %#x, expected 0x42", got)
	}
}
