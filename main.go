package main

import (
	"fmt"
	"os"

	"github.com/renbytes/spexplug/internal/interfaces/cli"
	"github.com/renbytes/spexplug/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cli.Execute(container)
}
