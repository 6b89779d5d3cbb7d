// Command webgrade audits web pages for quality: performance, security,
// SEO, accessibility and best practices. Run with no arguments for the
// interactive prompt, or see `webgrade --help` for the subcommands.
package main

import (
	"os"

	"github.com/webgrade/webgrade/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
