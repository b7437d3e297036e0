// Package main is the entry point for the nowtask CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nhle/nowtask/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "nowtask:", err)
		os.Exit(1)
	}
}
