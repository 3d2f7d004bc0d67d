package main

import (
	"os"

	"github.com/aletheia-ng/pidginforge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
