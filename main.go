package main

import (
	"os"

	"github.com/crawlytics/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
