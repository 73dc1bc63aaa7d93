package sim

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// TraceID identifies one signal registered with a Tracer.
type TraceID int

// Tracer receives the signal hierarchy and the per-step values of a
// traced simulator. A simulator generated with Options.Trace registers
// its ports and state through its SetTrace method, one scope per
// instance, then reports every value on each UpdateTrace call.
//
type Tracer interface {
	// PushModule opens a hierarchy scope.
	PushModule(name string) error

	// PopModule closes the innermost open scope.
	PopModule() error

	// AddSignal declares a signal in the current scope and returns the
	// id to report its values under.
	AddSignal(name string, width int) (TraceID, error)

	// Timestamp sets the time of the Update calls that follow.
	Timestamp(t uint64) error

	// Update records the current value of a declared signal.
	Update(id TraceID, value uint64) error
}

// VCD is a Tracer writing waveforms in the value change dump format
// understood by wave viewers. Signal declaration must be complete
// before the first Timestamp: closing the outermost scope ends the
// definitions section.
//
type VCD struct {
	w      io.Writer
	depth  int
	closed bool
	widths []int
}

// NewVCD returns a VCD tracer writing to w. timescale is the dump's
// time unit, e.g. "1 ns"; the default is used when empty.
func NewVCD(w io.Writer, timescale string) (*VCD, error) {
	if timescale == "" {
		timescale = "1 ns"
	}
	v := &VCD{w: w}
	if _, err := fmt.Fprintf(w, "$timescale %s $end\n", timescale); err != nil {
		return nil, errors.Wrap(err, "sim: vcd")
	}
	return v, nil
}

func (v *VCD) PushModule(name string) error {
	if v.closed {
		return errors.Errorf("sim: vcd: cannot open scope %q after definitions closed", name)
	}
	v.depth++
	_, err := fmt.Fprintf(v.w, "$scope module %s $end\n", name)
	return errors.Wrap(err, "sim: vcd")
}

func (v *VCD) PopModule() error {
	if v.depth == 0 {
		return errors.New("sim: vcd: unbalanced PopModule")
	}
	v.depth--
	if _, err := fmt.Fprintln(v.w, "$upscope $end"); err != nil {
		return errors.Wrap(err, "sim: vcd")
	}
	if v.depth == 0 {
		v.closed = true
		if _, err := fmt.Fprintln(v.w, "$enddefinitions $end"); err != nil {
			return errors.Wrap(err, "sim: vcd")
		}
	}
	return nil
}

func (v *VCD) AddSignal(name string, width int) (TraceID, error) {
	if v.closed {
		return 0, errors.Errorf("sim: vcd: cannot declare %q after definitions closed", name)
	}
	if width < 1 || width > 64 {
		return 0, errors.Errorf("sim: vcd: signal %q width %d out of range", name, width)
	}
	id := TraceID(len(v.widths))
	v.widths = append(v.widths, width)
	_, err := fmt.Fprintf(v.w, "$var wire %d %s %s $end\n", width, vcdID(id), name)
	return id, errors.Wrap(err, "sim: vcd")
}

func (v *VCD) Timestamp(t uint64) error {
	_, err := fmt.Fprintf(v.w, "#%d\n", t)
	return errors.Wrap(err, "sim: vcd")
}

func (v *VCD) Update(id TraceID, value uint64) error {
	if id < 0 || int(id) >= len(v.widths) {
		return errors.Errorf("sim: vcd: unknown signal id %d", id)
	}
	w := v.widths[id]
	value &= mask(w)
	if w == 1 {
		_, err := fmt.Fprintf(v.w, "%d%s\n", value, vcdID(id))
		return errors.Wrap(err, "sim: vcd")
	}
	_, err := fmt.Fprintf(v.w, "b%b %s\n", value, vcdID(id))
	return errors.Wrap(err, "sim: vcd")
}

// vcdID maps a signal id onto the short printable id codes VCD uses.
func vcdID(id TraceID) string {
	var b []byte
	n := int(id)
	for {
		b = append(b, byte('!'+n%94))
		n /= 94
		if n == 0 {
			break
		}
		n--
	}
	return string(b)
}
