package main

import (
	"os"

	"wizardtoolkit/internal/cli"
)

const version = "1.0"

func main() {
	cmd, reporter := cli.NewDecipherCommand(version)
	os.Exit(cli.Run(cmd, reporter))
}
