// Command adminconsole is a terminal client for the admin REST API.
//
// Usage:
//
//	adminconsole [flags]
//
// Without a subcommand it restores the previous session, if any, and
// starts an interactive prompt. See --help for options.
package main

import (
	"log"
	"os"
)

func main() {
	exit(run())
}

func run() int {
	if err := NewRootCmd().Execute(); err != nil {
		log.Printf("adminconsole error: %v", err)
		return 1
	}

	return 0
}

func exit(code int) {
	if code != 0 {
		os.Exit(code)
	}
}
