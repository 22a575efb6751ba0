package plan

import (
	"fmt"
	"testing"

	"github.com/slopdetect/slop/internal/detect"
)

func fd(id, file string, cat detect.Category, start, end uint32, saved int) *detect.Finding {
	return &detect.Finding{
		ID:         fmt.Sprintf("%s:%d:%s", file, start, id),
		Pattern:    id,
		Category:   cat,
		File:       file,
		StartLine:  start,
		EndLine:    end,
		LinesSaved: saved,
		Outcome:    &detect.Outcome{Confirmed: true},
	}
}

func TestDescendingLineOrderPerFile(t *testing.T) {
	p := Build([]*detect.Finding{
		fd("a", "x.py", detect.CategoryShape, 5, 6, 1),
		fd("b", "x.py", detect.CategoryShape, 20, 22, 2),
		fd("c", "x.py", detect.CategoryShape, 10, 11, 1),
	})
	if len(p.Edits) != 3 {
		t.Fatalf("expected 3 edits, got %d", len(p.Edits))
	}
	lines := []uint32{p.Edits[0].StartLine, p.Edits[1].StartLine, p.Edits[2].StartLine}
	if lines[0] != 20 || lines[1] != 10 || lines[2] != 5 {
		t.Errorf("edits must descend within a file, got %v", lines)
	}
	if p.LinesSaved != 4 {
		t.Errorf("plan savings = %d, want 4", p.LinesSaved)
	}
}

func TestFilesGroupedTogether(t *testing.T) {
	p := Build([]*detect.Finding{
		fd("a", "b.py", detect.CategoryShape, 3, 3, 1),
		fd("b", "a.py", detect.CategoryShape, 9, 9, 1),
		fd("c", "b.py", detect.CategoryShape, 7, 7, 1),
	})
	files := []string{p.Edits[0].File, p.Edits[1].File, p.Edits[2].File}
	if files[0] != "a.py" || files[1] != "b.py" || files[2] != "b.py" {
		t.Errorf("edits not grouped by file: %v", files)
	}
}

func TestDocumentationEditsLastPerFile(t *testing.T) {
	p := Build([]*detect.Finding{
		fd("doc", "a.py", detect.CategoryDocumentation, 30, 30, 1),
		fd("code", "a.py", detect.CategoryShape, 5, 7, 2),
		fd("code", "z.py", detect.CategoryShape, 50, 52, 2),
	})
	if len(p.Edits) != 3 {
		t.Fatalf("expected 3 edits, got %d", len(p.Edits))
	}
	if p.Edits[0].Category != detect.CategoryShape || p.Edits[0].File != "a.py" {
		t.Errorf("a.py's code edit must come first, got %+v", p.Edits[0])
	}
	if p.Edits[1].Category != detect.CategoryDocumentation {
		t.Errorf("a.py's doc edit must follow its code edits, got %+v", p.Edits[1])
	}
	if p.Edits[2].File != "z.py" {
		t.Errorf("doc edits stay within their file's group, got %+v", p.Edits[2])
	}
}

func TestOverlapDropsLighterCategory(t *testing.T) {
	heavy := fd("dead-private-symbol", "x.py", detect.CategoryDeadCode, 10, 20, 11)
	light := fd("redundant-else", "x.py", detect.CategoryShape, 15, 16, 1)
	p := Build([]*detect.Finding{light, heavy})

	if len(p.Edits) != 1 || p.Edits[0].FindingID != heavy.ID {
		t.Fatalf("heavier finding must win, got %+v", p.Edits)
	}
	if len(p.Dropped) != 1 || p.Dropped[0].ConflictsWith != heavy.ID {
		t.Fatalf("drop must name the winner, got %+v", p.Dropped)
	}
}

func TestSameFileNoOverlapBothKept(t *testing.T) {
	p := Build([]*detect.Finding{
		fd("a", "x.py", detect.CategoryDeadCode, 10, 20, 11),
		fd("b", "x.py", detect.CategoryShape, 21, 22, 1),
	})
	if len(p.Edits) != 2 || len(p.Dropped) != 0 {
		t.Errorf("adjacent ranges do not conflict: %d edits, %d dropped", len(p.Edits), len(p.Dropped))
	}
}

func TestUnconfirmedAndConfigExcluded(t *testing.T) {
	unconfirmed := fd("a", "x.py", detect.CategoryShape, 1, 1, 1)
	unconfirmed.Outcome = &detect.Outcome{Confirmed: false}
	config := fd("duplicate-config-key", "app.yaml", detect.CategoryConfig, 3, 3, 1)

	p := Build([]*detect.Finding{unconfirmed, config})
	if len(p.Edits) != 0 {
		t.Errorf("nothing should be planned, got %+v", p.Edits)
	}
}

func TestDeterministicAcrossInputOrder(t *testing.T) {
	a := fd("a", "x.py", detect.CategoryShape, 5, 8, 1)
	b := fd("b", "x.py", detect.CategoryConditional, 7, 9, 1) // overlaps a, same weight
	p1 := Build([]*detect.Finding{a, b})
	p2 := Build([]*detect.Finding{b, a})

	if len(p1.Edits) != 1 || len(p2.Edits) != 1 {
		t.Fatalf("expected one survivor in both plans")
	}
	if p1.Edits[0].FindingID != p2.Edits[0].FindingID {
		t.Errorf("winner depends on input order: %s vs %s",
			p1.Edits[0].FindingID, p2.Edits[0].FindingID)
	}
}
