// Package main provides insightsctl, an operator CLI that runs the dashboard
// view pipeline from a shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
