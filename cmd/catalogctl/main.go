// Command catalogctl manages a storefront catalog and runs searches against it
// from the terminal, using the same index and engine as the search service.
//
// Usage:
//
//	catalogctl --driver sqlite --sqlite-path data/catalog.db seed
//	catalogctl --driver sqlite --sqlite-path data/catalog.db autocomplete mob
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
