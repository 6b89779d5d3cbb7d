package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func batchCmd() *cobra.Command {
	flags := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Audit every URL listed in a file, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := readURLList(args[0])
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs found in %s", args[0])
			}

			runner, closeClient, err := newRunner()
			if err != nil {
				return err
			}
			defer closeClient()

			// Batch always scores; the summary is meaningless otherwise.
			flags.full = true

			out := cmd.OutOrStdout()
			succeeded, failed := 0, 0
			for _, url := range urls {
				fmt.Fprintf(out, "── %s ──\n", url)
				result := runOne(cmd.Context(), runner, out, url, flags)
				if result.Failed() {
					failed++
					continue
				}
				succeeded++
			}

			fmt.Fprintf(out, "Done: %d audited, %d failed, %d total\n",
				succeeded, failed, len(urls))
			if failed > 0 {
				return fmt.Errorf("%d of %d audits failed", failed, len(urls))
			}
			return nil
		},
	}

	flags.register(cmd)
	_ = cmd.Flags().MarkHidden("full")
	return cmd
}

// readURLList loads one URL per non-empty line; # lines are comments.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
