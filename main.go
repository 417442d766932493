// Package main is the entry point for tunwatch.
package main

import (
	"fmt"
	"os"

	"tunwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
