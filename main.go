package main

import (
	"os"

	"github.com/microgrid-lab/mgsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
