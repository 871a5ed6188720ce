package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupting a watch or a transfer is a normal exit, not a failure
		// worth reprinting.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "remsync:", err)
		}
		os.Exit(1)
	}
}
