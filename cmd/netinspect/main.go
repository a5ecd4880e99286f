package main

import (
	"os"

	"github.com/netinspect/netinspect/cmd/netinspect/commands"
)

func main() {
	if err := commands.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
