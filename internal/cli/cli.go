// Package cli provides the pricemove command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"
)

// Run starts the CLI application
func Run() {
	s := newSession(os.Stdout)
	rootCmd := newRootCmd(s)

	err := rootCmd.ExecuteContext(context.Background())
	s.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
