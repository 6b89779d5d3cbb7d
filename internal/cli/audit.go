package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/webgrade/webgrade/internal/audit"
	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/report"
	"github.com/webgrade/webgrade/internal/urlguard"
	"github.com/webgrade/webgrade/internal/webclient"
)

// auditFlags are the output knobs shared by audit and batch.
type auditFlags struct {
	full       bool
	timeout    int
	output     string
	asJSON     bool
	reportsDir string
}

func (f *auditFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&f.full, "full", "F", false, "run the full scored audit (default is basic page facts)")
	cmd.Flags().IntVarP(&f.timeout, "timeout", "t", audit.DefaultTimeoutSeconds, "fetch timeout in seconds")
	cmd.Flags().StringVarP(&f.output, "output", "o", report.FormatText, "output format: json|text")
	cmd.Flags().BoolVarP(&f.asJSON, "json", "j", false, "shortcut for --output json")
	cmd.Flags().StringVarP(&f.reportsDir, "reports-dir", "r", "", "also write the report to this directory")
}

func (f *auditFlags) format() string {
	if f.asJSON {
		return report.FormatJSON
	}
	return f.output
}

func auditCmd() *cobra.Command {
	flags := &auditFlags{}

	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audit a single URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, closeClient, err := newRunner()
			if err != nil {
				return err
			}
			defer closeClient()

			result := runner.Run(cmd.Context(), auditRequest(args[0], flags))
			if err := emitResult(cmd.OutOrStdout(), result, flags); err != nil {
				return err
			}
			if result.Failed() {
				return fmt.Errorf("audit failed: %s", result.Error)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func auditRequest(url string, flags *auditFlags) audit.Request {
	mode := audit.ModeBasic
	if flags.full {
		mode = audit.ModeFull
	}
	return audit.Request{URL: url, Mode: mode, TimeoutSeconds: flags.timeout}
}

// newRunner builds the pipeline the way the server does, minus the serving
// layer. The returned func releases the fetch client.
func newRunner() (*audit.Runner, func(), error) {
	env := config.New()
	logger, err := envLogger(env)
	if err != nil {
		return nil, nil, err
	}

	client, err := webclient.New(webclient.Config{Backend: env.ClientBackend()}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("construct webclient: %w", err)
	}

	runner := audit.NewRunner(urlguard.NewGate(nil), client, logger)
	cleanup := func() {
		_ = client.Close()
		_ = logger.Sync()
	}
	return runner, cleanup, nil
}

// emitResult prints the result in the requested format and optionally
// writes a report file.
func emitResult(out io.Writer, result *audit.Result, flags *auditFlags) error {
	switch flags.format() {
	case report.FormatJSON:
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintln(out, string(encoded))
	case report.FormatText:
		fmt.Fprintln(out, report.Render(result))
	default:
		return fmt.Errorf("unknown output format %q", flags.format())
	}

	if flags.reportsDir != "" {
		path, err := report.Write(flags.reportsDir, result, flags.format())
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(out, "Report written to %s\n", path)
	}
	return nil
}

// runOne is the shared single-URL path used by batch and the interactive
// prompt.
func runOne(ctx context.Context, runner *audit.Runner, out io.Writer, url string, flags *auditFlags) *audit.Result {
	result := runner.Run(ctx, auditRequest(url, flags))
	if err := emitResult(out, result, flags); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
	}
	return result
}
