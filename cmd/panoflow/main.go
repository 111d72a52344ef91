package main

import (
	"os"

	"github.com/panoflow/panoflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
