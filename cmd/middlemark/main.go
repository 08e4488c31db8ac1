package main

import (
	"os"

	"github.com/middlemark/middlemark/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
