// Command kharcha runs the expense ledger: the HTTP API (serve) and a few
// terminal commands over the same store.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	root, closeApp := newRootCmd(loadApp)
	err := root.ExecuteContext(context.Background())
	if cerr := closeApp(); cerr != nil {
		fmt.Fprintln(os.Stderr, "cleanup:", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
