// Command polarity labels Arabic sentences as positive, negative or neutral.
//
//	polarity serve      HTTP API
//	polarity worker     batch queue worker
//	polarity batch      label a CSV corpus offline
//	polarity normalize  normalize stdin line by line
package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
