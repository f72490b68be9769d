package main

import (
	"os"

	"github.com/wellcome-app/wizard/cmd/wellcome/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
