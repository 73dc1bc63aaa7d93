// Command hwgen builds a small demo design and writes generated
// simulator or Verilog source for it to standard output.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/hwgraph/hwgraph"
	"github.com/hwgraph/hwgraph/sim"
	"github.com/hwgraph/hwgraph/verilog"
)

var (
	lang = flag.String("lang", "verilog", "output language: verilog or go")
	pkg  = flag.String("pkg", "sim", "package name for generated Go source")
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	ctx := hwgraph.NewContext()
	top := blinky(ctx)

	switch *lang {
	case "verilog":
		if err := verilog.Generate(os.Stdout, top); err != nil {
			log.Fatal(err)
		}
	case "go":
		if err := sim.Generate(os.Stdout, top, sim.Options{Package: *pkg}); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("unknown output language %q", *lang)
	}
}

// blinky is a free-running counter driving a LED from its top bit.
func blinky(ctx *hwgraph.Context) *hwgraph.Module {
	m := ctx.Module("Blinky")
	count := m.Reg("count", 24, 0)
	count.DriveNext(count.Value().Add(m.Lit(1, 1)).Bits(23, 0))
	m.Output("led", count.Value().Bit(23))
	return m
}
