package main

import (
	"os"

	"twine-codec/cmd"
)

var version = "0.1.0"

func main() {
	if err := cmd.Execute(version); err != nil {
		os.Exit(1)
	}
}
