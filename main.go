// Package main is the entry point for the cmpfetch CLI application.
// It fetches CMBS collateral reports from a terminal's local CMP service.
package main

import (
	"cmpfetch/cli/cmd"
)

func main() {
	cmd.Execute()
}
