// Package main is the entry point for the wardctl admin tool.
package main

import (
	"os"

	"github.com/AustinWheel/diving-duck-sub000/cmd/wardctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
