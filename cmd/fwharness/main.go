package main

import (
	"os"

	"github.com/netlab-io/fwutil-harness/internal/cli"
)

func main() {
	command := cli.NewFwharnessCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
