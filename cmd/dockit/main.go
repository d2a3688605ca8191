// Command dockit stores schema-defined documents and maintains registered query indexes.
package main

import (
	"os"

	"github.com/cuker/dockit/internal/adapters/driving/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
