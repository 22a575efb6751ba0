// Package plan orders confirmed findings into an edit plan that can be
// applied top to bottom without fixups: edits are grouped per file and
// sorted by descending start line, so applying one never shifts the
// line numbers of the edits still pending. Within each file the
// documentation removals come after the code edits, because code
// rewrites may carry their comments with them; they stay inside the
// file's group so a file is finished before the next one starts.
package plan

import (
	"fmt"
	"sort"

	"github.com/slopdetect/slop/internal/detect"
)

// Edit is one applicable fix.
type Edit struct {
	FindingID string          `json:"finding_id" yaml:"finding_id"`
	Pattern   string          `json:"pattern" yaml:"pattern"`
	Category  detect.Category `json:"-" yaml:"-"`
	File      string          `json:"file" yaml:"file"`
	StartLine uint32          `json:"start_line" yaml:"start_line"`
	EndLine   uint32          `json:"end_line" yaml:"end_line"`
	// Replacement substitutes the line range; empty deletes it.
	Replacement string `json:"replacement,omitempty" yaml:"replacement,omitempty"`
	LinesSaved  int    `json:"lines_saved" yaml:"lines_saved"`
}

// Drop records a finding excluded from the plan because its range
// overlaps a higher-priority edit.
type Drop struct {
	FindingID     string `json:"finding_id" yaml:"finding_id"`
	ConflictsWith string `json:"conflicts_with" yaml:"conflicts_with"`
	Reason        string `json:"reason" yaml:"reason"`
}

// Plan is the ordered edit list for one scan.
type Plan struct {
	Edits      []Edit `json:"edits" yaml:"edits"`
	Dropped    []Drop `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	LinesSaved int    `json:"lines_saved" yaml:"lines_saved"`
}

// Build assembles the plan from confirmed findings. Config findings are
// reported, not planned: the engine does not rewrite configuration.
//
// Conflicts resolve by weight, heavier category wins; at equal weight
// the lexically smaller finding ID wins, which keeps the outcome stable
// across runs.
func Build(findings []*detect.Finding) *Plan {
	var candidates []*detect.Finding
	for _, f := range findings {
		if f.Confirmed() && f.Category != detect.CategoryConfig {
			candidates = append(candidates, f)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Weight() != candidates[j].Weight() {
			return candidates[i].Weight() > candidates[j].Weight()
		}
		return candidates[i].ID < candidates[j].ID
	})

	p := &Plan{}
	accepted := map[string][]*detect.Finding{} // file -> kept findings
	for _, f := range candidates {
		if winner := overlapsAny(accepted[f.File], f); winner != nil {
			p.Dropped = append(p.Dropped, Drop{
				FindingID:     f.ID,
				ConflictsWith: winner.ID,
				Reason: fmt.Sprintf("lines %d-%d overlap %s, which scores higher",
					f.StartLine, f.EndLine, winner.Pattern),
			})
			continue
		}
		accepted[f.File] = append(accepted[f.File], f)
	}

	for _, kept := range accepted {
		for _, f := range kept {
			p.Edits = append(p.Edits, Edit{
				FindingID:   f.ID,
				Pattern:     f.Pattern,
				Category:    f.Category,
				File:        f.File,
				StartLine:   f.StartLine,
				EndLine:     f.EndLine,
				Replacement: f.Replacement,
				LinesSaved:  f.LinesSaved,
			})
			p.LinesSaved += f.LinesSaved
		}
	}
	sort.Slice(p.Edits, func(i, j int) bool {
		a, b := p.Edits[i], p.Edits[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if docs(a) != docs(b) {
			return !docs(a) // within a file, code edits first, doc edits last
		}
		if a.StartLine != b.StartLine {
			return a.StartLine > b.StartLine
		}
		return a.FindingID < b.FindingID
	})
	sort.Slice(p.Dropped, func(i, j int) bool {
		return p.Dropped[i].FindingID < p.Dropped[j].FindingID
	})
	return p
}

func docs(e Edit) bool { return e.Category == detect.CategoryDocumentation }

// overlapsAny returns the already-kept finding whose line range shares a
// line with f, or nil.
func overlapsAny(kept []*detect.Finding, f *detect.Finding) *detect.Finding {
	for _, k := range kept {
		if f.StartLine <= k.EndLine && k.StartLine <= f.EndLine {
			return k
		}
	}
	return nil
}
