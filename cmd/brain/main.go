// Command brain is the CLI entrypoint (spec §6 "CLI"), a thin wrapper over
// internal/clicmd.
package main

import (
	"os"

	"github.com/huynle/brain/internal/clicmd"
)

func main() {
	os.Exit(clicmd.Execute())
}
