// Package output: report schema shared by the YAML and JSON formats.
package output

import (
	"fmt"

	"github.com/slopdetect/slop/internal/detect"
	"github.com/slopdetect/slop/internal/engine"
	"github.com/slopdetect/slop/internal/plan"
	"github.com/slopdetect/slop/internal/score"
)

// FindingOutput is one confirmed finding in a report.
type FindingOutput struct {
	// ID is the stable finding identifier: path:line:pattern
	ID string `yaml:"id" json:"id"`

	// Pattern is the detector pattern name, e.g. "dead-function"
	Pattern string `yaml:"pattern" json:"pattern"`

	// Category is the scoring category, e.g. "dead-code"
	Category string `yaml:"category" json:"category"`

	// Location is the file path and line range in format: path:start-end
	// Example: "pkg/handlers.py:45-89"
	Location string `yaml:"location" json:"location"`

	// LinesSaved is the estimated line reduction of applying the fix
	LinesSaved int `yaml:"lines_saved" json:"lines_saved"`

	// Technique is the verification technique that confirmed the finding
	Technique string `yaml:"technique,omitempty" json:"technique,omitempty"`

	// Reason is the verifier's note, e.g. "test-only callers"
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`

	// Replacement is the suggested rewrite; empty means delete the range
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`

	// Excerpt is the verbatim source of the flagged range
	Excerpt string `yaml:"excerpt,omitempty" json:"excerpt,omitempty"`
}

// DiscardOutput is one rejected candidate, kept for --show-discarded.
type DiscardOutput struct {
	ID       string `yaml:"id" json:"id"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	Location string `yaml:"location" json:"location"`

	// Technique is the verification technique that rejected the candidate
	Technique string `yaml:"technique,omitempty" json:"technique,omitempty"`

	// Reason is why verification rejected it
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// Report is the complete scan output.
type Report struct {
	// Score is the density verdict for the scan
	Score *score.Score `yaml:"score" json:"score"`

	// Findings are the confirmed findings, capped at the configured maximum
	Findings []FindingOutput `yaml:"findings" json:"findings"`

	// Truncated counts findings omitted by the maximum cap
	Truncated int `yaml:"truncated,omitempty" json:"truncated,omitempty"`

	// ConfigFindings are configuration-file findings, outside the score
	ConfigFindings []FindingOutput `yaml:"config_findings,omitempty" json:"config_findings,omitempty"`

	// Discarded are rejected candidates (only with --show-discarded)
	Discarded []DiscardOutput `yaml:"discarded,omitempty" json:"discarded,omitempty"`

	// Plan is the ordered edit plan (only for slop plan)
	Plan *plan.Plan `yaml:"plan,omitempty" json:"plan,omitempty"`

	// ParseFailures lists files the scan had to skip
	ParseFailures []engine.ParseFailure `yaml:"parse_failures,omitempty" json:"parse_failures,omitempty"`
}

// Options controls what a report includes.
type Options struct {
	// ShowDiscarded includes rejected candidates with their reasons.
	ShowDiscarded bool
	// IncludePlan attaches the edit plan.
	IncludePlan bool
	// MaxFindings caps the findings list; zero means no cap.
	MaxFindings int
	// WithExcerpts includes source excerpts on findings.
	WithExcerpts bool
}

// NewReport assembles a report from a scan result.
func NewReport(res *engine.Result, opts Options) *Report {
	r := &Report{
		Score:         res.Score,
		ParseFailures: res.ParseFailures,
	}

	findings := res.Findings
	if opts.MaxFindings > 0 && len(findings) > opts.MaxFindings {
		r.Truncated = len(findings) - opts.MaxFindings
		findings = findings[:opts.MaxFindings]
	}
	r.Findings = make([]FindingOutput, 0, len(findings))
	for _, f := range findings {
		r.Findings = append(r.Findings, findingOutput(f, opts.WithExcerpts))
	}

	for _, f := range res.Config {
		r.ConfigFindings = append(r.ConfigFindings, findingOutput(f, false))
	}

	if opts.ShowDiscarded {
		for _, f := range res.Discarded {
			d := DiscardOutput{
				ID:       f.ID,
				Pattern:  f.Pattern,
				Location: Location(f),
			}
			if f.Outcome != nil {
				d.Technique = string(f.Outcome.Technique)
				d.Reason = f.Outcome.Reason
			}
			r.Discarded = append(r.Discarded, d)
		}
	}

	if opts.IncludePlan {
		r.Plan = res.Plan
	}

	return r
}

// Location renders a finding position as path:start-end.
func Location(f *detect.Finding) string {
	if f.StartLine == f.EndLine {
		return fmt.Sprintf("%s:%d", f.File, f.StartLine)
	}
	return fmt.Sprintf("%s:%d-%d", f.File, f.StartLine, f.EndLine)
}

func findingOutput(f *detect.Finding, withExcerpt bool) FindingOutput {
	out := FindingOutput{
		ID:         f.ID,
		Pattern:    f.Pattern,
		Category:   f.Category.String(),
		Location:   Location(f),
		LinesSaved: f.LinesSaved,
	}
	if f.Outcome != nil {
		out.Technique = string(f.Outcome.Technique)
		out.Reason = f.Outcome.Reason
	}
	if withExcerpt {
		out.Replacement = f.Replacement
		out.Excerpt = f.Excerpt
	}
	return out
}
