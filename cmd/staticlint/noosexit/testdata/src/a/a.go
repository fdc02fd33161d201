package main

import (
	"os"
	sys "os"
)

func main() {
	if len(os.Args) > 2 {
		sys.Exit(2) // want "avoid using os.Exit in main.main"
	}

	defer func() {
		os.Exit(1) // want "avoid using os.Exit in main.main"
	}()

	os.Exit(0) // want "avoid using os.Exit in main.main"
}
