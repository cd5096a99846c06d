package main

import (
	"os"

	"github.com/harborops/berthd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
