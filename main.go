package main

import (
	"os"

	"sndiag/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
