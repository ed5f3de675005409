package main

import (
	"os"

	"github.com/denniswebb/mediacms/src/features/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
