// Command aix compiles chat requests into vendor payloads, runs streaming
// generations against configured endpoints and replays particle logs.
package main

import (
	"os"

	"github.com/leofalp/aix/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
