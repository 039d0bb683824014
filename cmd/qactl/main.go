// Command qactl is the operator tool for a devoverflow deployment. It talks to
// the store directly and never to a running server.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
