// Command pipestore queries and edits pipestore collections from the
// shell.
package main

import (
	"fmt"
	"os"
)

func main() {
	cli := NewCLI()
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
