// Command relay serves the assistant relay over HTTP and offers a few terminal
// utilities around it.
//
// Usage:
//
//	relay serve                 run the HTTP server
//	relay chat "<prompt>"       run one exchange against the assistant
//	relay watch                 print events mirrored on NATS
//	relay schema                print the JSON schema of the edit request body
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
