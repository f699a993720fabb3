// Command kite inspects kite projects and replays scripted scenes.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/kite/cmd/kite/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
