package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/samuelfneumann/goddpg/examples"
)

var example = flag.String("example", "configs", "which example to run: "+
	"one of 'configs' or 'scratch'")

func main() {
	flag.Parse()

	switch *example {
	case "configs":
		examples.DDPGPendulumWithConfigs()

	case "scratch":
		examples.DDPGPendulumFromScratch()

	default:
		fmt.Fprintf(os.Stderr, "no such example %v\n", *example)
		os.Exit(1)
	}
}
