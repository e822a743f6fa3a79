package main

import "github.com/quatton/qsys/cmd/qsysemu/cmd"

func main() {
	cmd.Execute()
}
