// The main package for the portarc executable.
package main

import (
	"github.com/cwhall/portarc/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
