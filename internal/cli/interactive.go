package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/webgrade/webgrade/internal/report"
)

// runInteractive is the bare-invocation prompt loop: read a URL, run a
// full audit, print the text report, repeat until quit/exit or EOF.
func runInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	runner, closeClient, err := newRunner()
	if err != nil {
		return err
	}
	defer closeClient()

	flags := &auditFlags{full: true, output: report.FormatText}

	fmt.Fprintln(out, "Webgrade interactive audit. Type quit or exit to leave.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "url> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		runOne(ctx, runner, out, line, flags)
	}
}
