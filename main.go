package main

import (
	"os"

	"github.com/apoxa-tati/HH-Jobs-Bot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
