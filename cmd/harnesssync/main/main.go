package main

import (
	"fmt"
	"os"

	"github.com/arthur-debert/harnesssync/cmd/harnesssync"
	"github.com/arthur-debert/harnesssync/pkg/ui"
)

func main() {
	rootCmd := harnesssync.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Print the error in red
		errorStyle := ui.GetStyle(ui.StyleFailed)
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
}
