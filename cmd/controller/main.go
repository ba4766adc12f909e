package main

import (
	"fmt"
	"os"

	"github.com/okdaichi/sdnctl/internal/cli"
)

// overridable for easier unit-testing
var runController = cli.RunController

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the controller and returns an exit code (0 = success).
func run(args []string) int {
	if err := runController(args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
