// Command nexasec is the entry point for the network discovery
// daemon and its inspection commands.
package main

import (
	"github.com/IRASUBIZA-SALY-NELSON/nexasec/cmd/cli"
)

// Build information - set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
