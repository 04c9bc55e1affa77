package main

import (
	"fmt"
	"os"

	"rental-tracker/cli"
)

// Version is set at build time via -ldflags "-X main.Version=X.Y.Z".
var Version = "0.0.0-dev"

func main() {
	if err := cli.Execute(Version); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
