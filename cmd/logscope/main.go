// Package main provides the entry point for the logscope CLI.
// logscope parses web access logs and reports traffic structure and
// abusive clients.
package main

import (
	"os"

	"logscope/cmd/logscope/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
