package main

import (
	"os"

	"github.com/MimeLyc/subedit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
