// Command sedarctl runs the form pipeline offline against payload files:
// project a backend record, validate a field set, build the wire payload.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
