package main

import (
	"os"

	"github.com/zapgate/zapgate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
