package main

import (
	"os"

	"github.com/schoolboyqueue/spectrace/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
