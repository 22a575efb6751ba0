// Package output provides formatters for different output formats.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Formatter is the interface for rendering a scan report.
type Formatter interface {
	// Format renders a report as a string.
	Format(r *Report) (string, error)

	// FormatToWriter writes a rendered report directly to a writer.
	FormatToWriter(w io.Writer, r *Report) error
}

// YAMLFormatter renders reports as YAML output.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format renders a report as YAML.
func (f *YAMLFormatter) Format(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes YAML output to a writer.
func (f *YAMLFormatter) FormatToWriter(w io.Writer, r *Report) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	return encoder.Encode(r)
}

// JSONFormatter renders reports as JSON output.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format renders a report as JSON.
func (f *JSONFormatter) Format(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes JSON output to a writer.
func (f *JSONFormatter) FormatToWriter(w io.Writer, r *Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(r)
}

// TableFormatter renders reports as human-readable tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Format renders a report as tables.
func (f *TableFormatter) Format(r *Report) (string, error) {
	var buf bytes.Buffer
	if err := f.FormatToWriter(&buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatToWriter writes table output to a writer.
func (f *TableFormatter) FormatToWriter(w io.Writer, r *Report) error {
	f.writeSummary(w, r)

	if len(r.Findings) > 0 {
		fmt.Fprintln(w)
		f.writeFindings(w, r)
	}
	if len(r.ConfigFindings) > 0 {
		fmt.Fprintln(w)
		f.writeConfigFindings(w, r)
	}
	if len(r.Discarded) > 0 {
		fmt.Fprintln(w)
		f.writeDiscarded(w, r)
	}
	if r.Plan != nil {
		fmt.Fprintln(w)
		f.writePlan(w, r)
	}
	if len(r.ParseFailures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Skipped %d unparsable file(s):\n", len(r.ParseFailures))
		for _, pf := range r.ParseFailures {
			fmt.Fprintf(w, "  %s: %s\n", pf.Path, pf.Err)
		}
	}

	return nil
}

// writeSummary prints the score line and the category breakdown.
func (f *TableFormatter) writeSummary(w io.Writer, r *Report) {
	s := r.Score
	if s == nil {
		fmt.Fprintln(w, "No score available.")
		return
	}

	fmt.Fprintf(w, "Bloat density: %.1f%% (%s)\n", s.Density, s.Band)
	fmt.Fprintf(w, "Lines scanned: %d | removable: %d raw, %.1f weighted\n",
		s.TotalLines, s.RawLines, s.WeightedLines)

	if len(s.Categories) == 0 {
		return
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Category", "Findings", "Raw Lines", "Weighted"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	for _, ct := range s.Categories {
		table.Append([]string{
			ct.Name,
			strconv.Itoa(ct.Findings),
			strconv.Itoa(ct.RawLines),
			fmt.Sprintf("%.1f", ct.Weighted),
		})
	}
	table.Render()
}

// writeFindings prints the confirmed findings table.
func (f *TableFormatter) writeFindings(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Findings (%d):\n", len(r.Findings))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Location", "Pattern", "Category", "Lines", "Technique"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for _, fo := range r.Findings {
		table.Append([]string{
			fo.Location,
			fo.Pattern,
			fo.Category,
			strconv.Itoa(fo.LinesSaved),
			fo.Technique,
		})
	}
	table.Render()

	if r.Truncated > 0 {
		fmt.Fprintf(w, "... and %d more (raise output.max_findings to see them)\n", r.Truncated)
	}
}

// writeConfigFindings prints configuration findings, which sit outside
// the score.
func (f *TableFormatter) writeConfigFindings(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Config findings (%d, unscored):\n", len(r.ConfigFindings))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Location", "Pattern", "Reason"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for _, fo := range r.ConfigFindings {
		table.Append([]string{fo.Location, fo.Pattern, fo.Reason})
	}
	table.Render()
}

// writeDiscarded prints rejected candidates with their rejection reasons.
func (f *TableFormatter) writeDiscarded(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Discarded candidates (%d):\n", len(r.Discarded))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Location", "Pattern", "Reason"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for _, d := range r.Discarded {
		table.Append([]string{d.Location, d.Pattern, d.Reason})
	}
	table.Render()
}

// writePlan prints the edit plan in apply order.
func (f *TableFormatter) writePlan(w io.Writer, r *Report) {
	p := r.Plan
	fmt.Fprintf(w, "Fix plan: %d edit(s), %d line(s) saved\n", len(p.Edits), p.LinesSaved)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "File", "Lines", "Pattern", "Saved"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	for i, e := range p.Edits {
		span := strconv.Itoa(int(e.StartLine))
		if e.EndLine != e.StartLine {
			span = fmt.Sprintf("%d-%d", e.StartLine, e.EndLine)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			e.File,
			span,
			e.Pattern,
			strconv.Itoa(e.LinesSaved),
		})
	}
	table.Render()

	for _, d := range p.Dropped {
		fmt.Fprintf(w, "  dropped %s: %s\n", d.FindingID, d.Reason)
	}
}

// GetFormatter returns a formatter for the specified format.
func GetFormatter(format Format) (Formatter, error) {
	switch format {
	case FormatTable:
		return NewTableFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
