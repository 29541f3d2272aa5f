package main

import (
	"os"

	"github.com/jarlab/jarlab/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
