package main

import (
	"os"

	"github.com/rdkc4/minic/cmd/minic/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
