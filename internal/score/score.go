// Package score turns confirmed findings into a bloat density score.
// The score is a percentage of weighted removable lines over non-empty
// production lines, bucketed into bands for reporting.
package score

import (
	"sort"

	"github.com/slopdetect/slop/internal/detect"
)

// Band is the qualitative bucket a density falls into.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandNeedsWork Band = "needs-work"
	BandHeavy     Band = "heavy"
)

// BandFor buckets a density percentage.
func BandFor(density float64) Band {
	switch {
	case density < 5:
		return BandExcellent
	case density < 15:
		return BandGood
	case density < 30:
		return BandNeedsWork
	}
	return BandHeavy
}

// Severity orders bands from best to worst, for CI gating.
func (b Band) Severity() int {
	switch b {
	case BandExcellent:
		return 0
	case BandGood:
		return 1
	case BandNeedsWork:
		return 2
	case BandHeavy:
		return 3
	}
	return -1
}

// CategoryTotal is the contribution of one category to the score.
type CategoryTotal struct {
	Category detect.Category `json:"-" yaml:"-"`
	Name     string          `json:"category" yaml:"category"`
	Findings int             `json:"findings" yaml:"findings"`
	RawLines int             `json:"raw_lines" yaml:"raw_lines"`
	Weighted float64         `json:"weighted_lines" yaml:"weighted_lines"`
}

// Score is the scan verdict. Config findings never contribute: they are
// unweighted and live outside the production line count.
type Score struct {
	// TotalLines is the non-empty production line count of the scan.
	TotalLines int `json:"total_lines" yaml:"total_lines"`
	// RawLines sums the estimated line savings of confirmed findings.
	RawLines int `json:"raw_lines" yaml:"raw_lines"`
	// WeightedLines applies the category weights to the raw savings.
	WeightedLines float64 `json:"weighted_lines" yaml:"weighted_lines"`
	// Density is WeightedLines over TotalLines, as a percentage.
	Density float64 `json:"density" yaml:"density"`
	Band    Band    `json:"band" yaml:"band"`

	Categories []CategoryTotal `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// Compute scores the confirmed findings against the production line
// count. Unconfirmed and config findings are ignored; a zero line count
// yields a zero score rather than a division.
func Compute(findings []*detect.Finding, totalLines int) *Score {
	s := &Score{TotalLines: totalLines}
	perCat := map[detect.Category]*CategoryTotal{}

	for _, f := range findings {
		if !f.Confirmed() || f.Category == detect.CategoryConfig {
			continue
		}
		ct := perCat[f.Category]
		if ct == nil {
			ct = &CategoryTotal{Category: f.Category, Name: f.Category.String()}
			perCat[f.Category] = ct
		}
		ct.Findings++
		ct.RawLines += f.LinesSaved
		ct.Weighted += float64(f.LinesSaved) * f.Weight()

		s.RawLines += f.LinesSaved
		s.WeightedLines += float64(f.LinesSaved) * f.Weight()
	}

	for _, ct := range perCat {
		s.Categories = append(s.Categories, *ct)
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		return s.Categories[i].Category < s.Categories[j].Category
	})

	if totalLines > 0 {
		s.Density = s.WeightedLines / float64(totalLines) * 100
	}
	s.Band = BandFor(s.Density)
	return s
}
