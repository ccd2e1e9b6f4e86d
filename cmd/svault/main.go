// Package main is the entry point for svault, the component inventory
// backup tool.
package main

import (
	"os"

	"github.com/Dicklesworthstone/siliconvault/cmd/svault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
