// Package main is the entry point for the slop CLI tool.
package main

import (
	"github.com/slopdetect/slop/internal/cmd"
)

func main() {
	cmd.Execute()
}
