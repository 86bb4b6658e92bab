package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/TrishulMallur/EchoKey/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Exit errors were already reported in the requested format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
