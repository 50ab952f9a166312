// Command studyrag ingests PDF study material and answers questions about it.
package main

import (
	"os"

	"github.com/custodia-labs/studyrag/internal/adapters/driving/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version, newRuntime))
}
