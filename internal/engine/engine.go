// Package engine runs one scan end to end: build source models, build
// the reference index, detect, verify, score and plan. Stages are
// separated by barriers; within a stage files are processed in
// parallel, and results are sorted so two scans of the same input are
// byte-identical.
package engine

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slopdetect/slop/internal/detect"
	"github.com/slopdetect/slop/internal/index"
	"github.com/slopdetect/slop/internal/parser"
	"github.com/slopdetect/slop/internal/plan"
	"github.com/slopdetect/slop/internal/score"
	"github.com/slopdetect/slop/internal/source"
	"github.com/slopdetect/slop/internal/verify"
)

// FileSpec is one source file handed to the engine, content preloaded.
type FileSpec struct {
	Path    string
	Content []byte
	// Test marks an index-only file: its references count, its bloat
	// does not.
	Test bool
}

// ConfigSpec is one configuration file, scanned line-wise only.
type ConfigSpec struct {
	Path  string
	Lines []string
}

// Input is the full work order for one scan.
type Input struct {
	Files   []FileSpec
	Configs []ConfigSpec
	// Workers caps stage parallelism; zero means GOMAXPROCS.
	Workers int
}

// ParseFailure records a file the scan had to skip.
type ParseFailure struct {
	Path string `json:"path" yaml:"path"`
	Err  string `json:"error" yaml:"error"`
}

// Result is everything a scan produces.
type Result struct {
	// Confirmed findings, sorted by file, line, ID.
	Findings []*detect.Finding
	// Discarded candidates with their rejection outcomes.
	Discarded []*detect.Finding
	// Config findings, reported outside the score.
	Config []*detect.Finding
	Score  *score.Score
	Plan   *plan.Plan

	ParseFailures []ParseFailure
	// TotalLines is the non-empty line count over production files.
	TotalLines int
}

// Run executes one scan. Parse failures skip the file and surface in
// the result; any other error aborts the scan.
func Run(ctx context.Context, in Input) (*Result, error) {
	workers := in.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	files, failures, failedLines, err := buildModels(ctx, in.Files, workers)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	// Index barrier: every tree must exist before any caller count is
	// trusted.
	ix := index.Build(files)

	candidates, err := detectAll(ctx, files, workers)
	if err != nil {
		return nil, err
	}

	confirmed, discarded := verify.Run(candidates, ix)

	res := &Result{
		Findings:      confirmed,
		Discarded:     discarded,
		ParseFailures: failures,
	}
	for _, f := range files {
		if !f.IsTest {
			res.TotalLines += f.NonEmptyLines
		}
	}
	// A file the parser rejects is still code the project carries.
	res.TotalLines += failedLines
	for _, c := range in.Configs {
		res.Config = append(res.Config, detect.DetectConfig(c.Path, c.Lines)...)
	}

	sortFindings(res.Findings)
	sortFindings(res.Discarded)
	sortFindings(res.Config)

	res.Score = score.Compute(res.Findings, res.TotalLines)
	res.Plan = plan.Build(res.Findings)
	return res, nil
}

// buildModels parses every file into a source model. Each worker owns
// its own parser; tree-sitter parsers are not safe to share. Parse
// failures keep their non-empty line count: the file is excluded from
// detection and indexing, not from the size of the tree.
func buildModels(ctx context.Context, specs []FileSpec, workers int) ([]*source.File, []ParseFailure, int, error) {
	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan FileSpec)

	var mu sync.Mutex
	var files []*source.File
	var failures []ParseFailure
	failedLines := 0

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			b := source.NewBuilder()
			defer b.Close()
			for spec := range jobs {
				f, err := b.Build(spec.Path, spec.Content, spec.Test)
				if err != nil {
					var perr *parser.ParseError
					if errors.As(err, &perr) {
						mu.Lock()
						failures = append(failures, ParseFailure{Path: spec.Path, Err: err.Error()})
						if !spec.Test {
							failedLines += source.CountNonEmptyLines(spec.Content)
						}
						mu.Unlock()
						continue
					}
					return err
				}
				mu.Lock()
				files = append(files, f)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(jobs)
		for _, spec := range specs {
			select {
			case jobs <- spec:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		for _, f := range files {
			f.Close()
		}
		return nil, nil, 0, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Path < failures[j].Path })
	return files, failures, failedLines, nil
}

// detectAll runs the detector registry over production files. Detection
// is file-local, so files fan out freely; the combined slice is sorted
// afterwards to erase scheduling order.
func detectAll(ctx context.Context, files []*source.File, workers int) ([]*detect.Finding, error) {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	var all []*detect.Finding
	for _, f := range files {
		if f.IsTest {
			continue
		}
		f := f
		g.Go(func() error {
			found := detect.Run(f)
			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sortFindings(all)
	return all, nil
}

func sortFindings(fs []*detect.Finding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].File != fs[j].File {
			return fs[i].File < fs[j].File
		}
		if fs[i].StartLine != fs[j].StartLine {
			return fs[i].StartLine < fs[j].StartLine
		}
		return fs[i].ID < fs[j].ID
	})
}
