// Package report renders benchmark results as an HTML page, a markdown
// summary, or raw JSON.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/weiihann/jsonbbench/harness"
)

// Placeholder is the token in the HTML template replaced by the results.
const Placeholder = "{{DATA_PLACEHOLDER}}"

// RenderHTML substitutes the JSON-encoded results for the first
// Placeholder in tmpl.
func RenderHTML(tmpl []byte, results harness.Results) ([]byte, error) {
	if !bytes.Contains(tmpl, []byte(Placeholder)) {
		return nil, fmt.Errorf("template has no %s token", Placeholder)
	}

	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}

	return bytes.Replace(tmpl, []byte(Placeholder), data, 1), nil
}

// WriteHTML reads the template at templatePath, renders results into it
// and writes the page to outputPath, replacing any existing file.
func WriteHTML(templatePath, outputPath string, results harness.Results) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	page, err := RenderHTML(tmpl, results)
	if err != nil {
		return fmt.Errorf("render %s: %w", templatePath, err)
	}

	if err := os.WriteFile(outputPath, page, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// Generate writes a markdown summary of both runs to w.
func Generate(w io.Writer, results harness.Results) error {
	runs := []*harness.RunResult{results.LargeUpdates, results.SmallUpdates}

	empty := true
	for _, r := range runs {
		if r != nil && len(r.Sizes) > 0 {
			empty = false
		}
	}

	if empty {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintln(w, "## Benchmark Results")

	for _, r := range runs {
		if r == nil || len(r.Sizes) == 0 {
			continue
		}

		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", r.Description)
		fmt.Fprintln(w)

		first := r.Sizes[0]
		last := r.Sizes[len(r.Sizes)-1]

		fmt.Fprintf(w, "Updates: %d\n", last.UpdateCount)
		fmt.Fprintf(w, "Large table: %s -> %s (%s)\n",
			formatBytes(first.Large.TotalSize),
			formatBytes(last.Large.TotalSize),
			formatGrowth(first.Large.TotalSize, last.Large.TotalSize),
		)
		fmt.Fprintf(w, "Small table: %s -> %s (%s)\n",
			formatBytes(first.Small.TotalSize),
			formatBytes(last.Small.TotalSize),
			formatGrowth(first.Small.TotalSize, last.Small.TotalSize),
		)
		fmt.Fprintln(w)

		fmt.Fprintln(w, "| Updates | Large Total | Large Main | Large TOAST "+
			"| Small Total | Small Main | Small TOAST |")
		fmt.Fprintln(w, "|---------|-------------|------------|-------------"+
			"|-------------|------------|-------------|")

		for _, s := range r.Sizes {
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s | %s |\n",
				s.UpdateCount,
				formatBytes(s.Large.TotalSize),
				formatBytes(s.Large.MainSize),
				formatBytes(s.Large.ToastSize),
				formatBytes(s.Small.TotalSize),
				formatBytes(s.Small.MainSize),
				formatBytes(s.Small.ToastSize),
			)
		}
	}

	return nil
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results harness.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func formatGrowth(from, to int64) string {
	if from <= 0 {
		return "n/a"
	}

	return fmt.Sprintf("%.2fx", float64(to)/float64(from))
}

func formatBytes(b int64) string {
	if b == 0 {
		return "-"
	}

	sign := ""
	if b < 0 {
		sign = "-"
		b = -b
	}

	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(b)
	unit := 0

	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}

	formatted := fmt.Sprintf("%.1f", size)
	formatted = strings.TrimRight(formatted, "0")
	formatted = strings.TrimRight(formatted, ".")

	return sign + formatted + " " + units[unit]
}
