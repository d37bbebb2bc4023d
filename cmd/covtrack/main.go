package main

import (
	"os"

	"github.com/dshills/covtrack/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
