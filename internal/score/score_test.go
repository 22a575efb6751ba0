package score

import (
	"testing"

	"github.com/slopdetect/slop/internal/detect"
)

func confirmed(cat detect.Category, lines int) *detect.Finding {
	return &detect.Finding{
		Category:   cat,
		LinesSaved: lines,
		Outcome:    &detect.Outcome{Confirmed: true},
	}
}

func TestWeightedDensity(t *testing.T) {
	// 20 dead-code lines at weight 1.5 over 1000 lines: 3.0%.
	s := Compute([]*detect.Finding{confirmed(detect.CategoryDeadCode, 20)}, 1000)
	if s.RawLines != 20 {
		t.Errorf("raw = %d, want 20", s.RawLines)
	}
	if s.WeightedLines != 30 {
		t.Errorf("weighted = %v, want 30", s.WeightedLines)
	}
	if s.Density != 3.0 {
		t.Errorf("density = %v, want 3.0", s.Density)
	}
	if s.Band != BandExcellent {
		t.Errorf("band = %s, want excellent", s.Band)
	}
}

func TestUnconfirmedAndConfigExcluded(t *testing.T) {
	findings := []*detect.Finding{
		confirmed(detect.CategoryConfig, 10),
		{Category: detect.CategoryDeadCode, LinesSaved: 10}, // no outcome
		{
			Category:   detect.CategoryShape,
			LinesSaved: 10,
			Outcome:    &detect.Outcome{Confirmed: false},
		},
	}
	s := Compute(findings, 100)
	if s.RawLines != 0 || s.WeightedLines != 0 {
		t.Errorf("nothing should score, got raw=%d weighted=%v", s.RawLines, s.WeightedLines)
	}
}

func TestBandBoundaries(t *testing.T) {
	cases := []struct {
		density float64
		want    Band
	}{
		{0, BandExcellent},
		{4.99, BandExcellent},
		{5, BandGood},
		{14.99, BandGood},
		{15, BandNeedsWork},
		{29.99, BandNeedsWork},
		{30, BandHeavy},
		{80, BandHeavy},
	}
	for _, c := range cases {
		if got := BandFor(c.density); got != c.want {
			t.Errorf("BandFor(%v) = %s, want %s", c.density, got, c.want)
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	ordered := []Band{BandExcellent, BandGood, BandNeedsWork, BandHeavy}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Severity() >= ordered[i].Severity() {
			t.Errorf("%s should rank below %s", ordered[i-1], ordered[i])
		}
	}
	if Band("bogus").Severity() != -1 {
		t.Error("unknown band should rank below every real band")
	}
}

func TestZeroLinesNoDivision(t *testing.T) {
	s := Compute([]*detect.Finding{confirmed(detect.CategoryShape, 5)}, 0)
	if s.Density != 0 {
		t.Errorf("empty project density = %v, want 0", s.Density)
	}
}

func TestCategoryBreakdownSorted(t *testing.T) {
	findings := []*detect.Finding{
		confirmed(detect.CategoryFlow, 2),
		confirmed(detect.CategoryConditional, 3),
		confirmed(detect.CategoryConditional, 1),
	}
	s := Compute(findings, 100)
	if len(s.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(s.Categories))
	}
	if s.Categories[0].Category != detect.CategoryConditional || s.Categories[0].Findings != 2 {
		t.Errorf("unexpected first bucket: %+v", s.Categories[0])
	}
	if s.Categories[0].RawLines != 4 {
		t.Errorf("conditional raw = %d, want 4", s.Categories[0].RawLines)
	}
}
