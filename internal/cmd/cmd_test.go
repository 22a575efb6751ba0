package cmd

import (
	"testing"

	"github.com/slopdetect/slop/internal/config"
	"github.com/slopdetect/slop/internal/engine"
)

func TestCheckFailBand(t *testing.T) {
	tests := []struct {
		name      string
		threshold string
		band      string
		wantErr   bool
	}{
		{"no gate", "", "heavy", false},
		{"below gate", "needs-work", "good", false},
		{"at gate", "needs-work", "needs-work", true},
		{"beyond gate", "needs-work", "heavy", true},
		{"excellent passes strictest gate", "good", "excellent", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Report.FailBand = tt.threshold
			reportFailBand = ""

			err := checkFailBand(cfg, tt.band)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkFailBand(%q, %q) error = %v, wantErr %v", tt.threshold, tt.band, err, tt.wantErr)
			}
		})
	}
}

func TestCheckFailBandFlagWinsOverConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Report.FailBand = "heavy"
	reportFailBand = "good"
	defer func() { reportFailBand = "" }()

	if err := checkFailBand(cfg, "good"); err == nil {
		t.Error("flag threshold should override the config and trip the gate")
	}
}

func TestCheckFailBandInvalid(t *testing.T) {
	cfg := config.DefaultConfig()
	reportFailBand = "terrible"
	defer func() { reportFailBand = "" }()

	if err := checkFailBand(cfg, "excellent"); err == nil {
		t.Error("expected error for invalid fail band")
	}
}

func TestFileHashes(t *testing.T) {
	in := engine.Input{Files: []engine.FileSpec{
		{Path: "a.py", Content: []byte("x = 1\n")},
		{Path: "b.py", Content: []byte("x = 1\n")},
		{Path: "c.py", Content: []byte("y = 2\n")},
	}}

	hashes := fileHashes(in)
	if len(hashes) != 3 {
		t.Fatalf("expected 3 hashes, got %d", len(hashes))
	}
	if hashes["a.py"] != hashes["b.py"] {
		t.Error("identical content should hash identically")
	}
	if hashes["a.py"] == hashes["c.py"] {
		t.Error("different content should hash differently")
	}
}

func TestResolveMaxFindings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.MaxFindings = 50

	scanMaxFindings = 0
	if got := resolveMaxFindings(cfg); got != 50 {
		t.Errorf("expected config cap 50, got %d", got)
	}

	scanMaxFindings = 10
	defer func() { scanMaxFindings = 0 }()
	if got := resolveMaxFindings(cfg); got != 10 {
		t.Errorf("expected flag cap 10, got %d", got)
	}
}
