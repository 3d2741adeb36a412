// Command snippetbase serves and manages a local snippet library.
package main

import (
	"fmt"
	"os"

	"github.com/sakif/snippetbase/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
