package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/quatton/qsys/cmd/qsysctl/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "qsysctl crashed: %v\n", r)
			if os.Getenv("QSYS_DEBUG") != "" {
				debug.PrintStack()
			}
			os.Exit(2)
		}
	}()

	cmd.Execute()
}
