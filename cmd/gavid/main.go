// Command gavid exercises sharding, Merkle commitments, and dispersal from the command line.
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
