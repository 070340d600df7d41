// Command rvcore runs and inspects the RISC-V address translation core.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rvcore/cmd/rvcore/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
