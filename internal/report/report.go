// Package report renders audit results for humans and writes report files.
// The JSON report is the canonical artifact; the text form is a pure
// formatting function over it.
package report

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/webgrade/webgrade/internal/audit"
)

// Output formats accepted by Write.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// criterionOrder fixes the section order of text reports.
var criterionOrder = []string{
	audit.CriterionPerformance,
	audit.CriterionSecurity,
	audit.CriterionSEO,
	audit.CriterionAccessibility,
	audit.CriterionBestPractices,
}

// Render formats one audit result as a human-readable text report.
func Render(result *audit.Result) string {
	var b strings.Builder
	divider := strings.Repeat("=", 56)

	fmt.Fprintf(&b, "%s\nWEBGRADE AUDIT REPORT\n%s\n", divider, divider)
	fmt.Fprintf(&b, "URL:       %s\n", result.URL)
	if result.FinalURL != "" && result.FinalURL != result.URL {
		fmt.Fprintf(&b, "Final URL: %s\n", result.FinalURL)
	}
	fmt.Fprintf(&b, "Date:      %s\n", result.Timestamp)
	fmt.Fprintf(&b, "Mode:      %s\n", result.Mode)

	if result.Failed() {
		fmt.Fprintf(&b, "\nERROR: %s\n%s\n", result.Error, divider)
		return b.String()
	}

	fmt.Fprintf(&b, "Status:    %d\n", result.Status)
	fmt.Fprintf(&b, "Response:  %.2fs\n", result.ResponseTimeS)
	if result.Title != "" {
		fmt.Fprintf(&b, "Title:     %s\n", result.Title)
	}
	fmt.Fprintf(&b, "Images:    %d\n", result.ImageCount)
	fmt.Fprintf(&b, "Links:     %d\n", result.LinkCount)
	fmt.Fprintf(&b, "Mobile:    %s\n", yesNo(result.MobileFriendly))
	if result.DeclaredCharset != "" {
		fmt.Fprintf(&b, "Charset:   %s\n", result.DeclaredCharset)
	}

	if result.OverallScore != nil {
		fmt.Fprintf(&b, "\nOVERALL SCORE: %.2f / 100\n", *result.OverallScore)
	}

	for _, name := range criterionNames(result) {
		cr := result.Criteria[name]
		fmt.Fprintf(&b, "\n--- %s: %.2f", strings.ToUpper(name), cr.Score)
		if weight, ok := result.Weights[name]; ok {
			fmt.Fprintf(&b, " (weight %d)", weight)
		}
		b.WriteString(" ---\n")
		for _, note := range cr.Notes {
			fmt.Fprintf(&b, "  - %s\n", note)
		}
		if len(cr.Notes) == 0 {
			b.WriteString("  No issues found.\n")
		}
	}

	fmt.Fprintf(&b, "%s\n", divider)
	return b.String()
}

// Write renders the report in the given format and writes it under dir,
// creating the directory as needed. It returns the written path.
func Write(dir string, result *audit.Result, format string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case FormatText:
		data = []byte(Render(result))
		ext = "txt"
	case FormatJSON, "":
		data, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		ext = "json"
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}

	path := filepath.Join(dir, Filename(result, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Filename derives the report file name: webgrade_<host>_<UTC stamp>.<ext>.
func Filename(result *audit.Result, ext string) string {
	host := "unknown"
	if u, err := url.Parse(result.URL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = sanitizeHost(host)

	stamp := strings.NewReplacer(":", "", "-", "").Replace(result.Timestamp)
	if stamp == "" {
		stamp = time.Now().UTC().Format("20060102T150405Z")
	}
	return fmt.Sprintf("webgrade_%s_%s.%s", host, stamp, ext)
}

func sanitizeHost(host string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(host) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// criterionNames returns the known criteria first, then any extras sorted,
// so retuned criterion sets still render deterministically.
func criterionNames(result *audit.Result) []string {
	names := []string{}
	seen := map[string]bool{}
	for _, name := range criterionOrder {
		if _, ok := result.Criteria[name]; ok {
			names = append(names, name)
			seen[name] = true
		}
	}
	extras := []string{}
	for name := range result.Criteria {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(names, extras...)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
