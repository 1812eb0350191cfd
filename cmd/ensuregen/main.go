package main

import (
	"os"

	"github.com/solatis/ensuregen/cmd/ensuregen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
