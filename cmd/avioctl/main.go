// avioctl - inspect native I/O error codes and drive avio stream adapters.
package main

import (
	"os"

	"github.com/thesyncim/avio/internal/commands"
)

// ExitCoder is an interface for errors that have an exit code.
type ExitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.Execute(); err != nil {
		if ec, ok := err.(ExitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
