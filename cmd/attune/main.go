package main

import (
	"os"

	"github.com/attune-oss/attune/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
