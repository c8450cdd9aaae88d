// Command goserdes loads, converts, queries and renders records declared in
// JSON, YAML, TOML and INI documents.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
