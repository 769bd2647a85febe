// passgatectl is an operator tool for the passgate server: it produces
// password hashes for seeding accounts and issues or inspects access tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
