package main

import (
	"os"

	"wizardtoolkit/internal/cli"
)

const version = "1.0"

func main() {
	cmd, reporter := cli.NewEncipherCommand(version)
	os.Exit(cli.Run(cmd, reporter))
}
