package detect

import (
	"sort"

	"github.com/slopdetect/slop/internal/source"
)

// Detector is a single pattern rule. Detectors are independent of one
// another, run once per production file, and must not consult the
// reference index: detection is file-local so files can be processed in
// parallel, and all cross-file reasoning happens in verification.
type Detector interface {
	// Name is the pattern name carried by the findings it produces.
	Name() string
	// Category is the finding category for this rule.
	Category() Category
	// Detect returns candidate findings for one file.
	Detect(f *source.File) []*Finding
}

// Registry returns the full detector set. Callers get a fresh slice;
// detectors are stateless and safe to share across goroutines.
func Registry() []Detector {
	return []Detector{
		// Category 1: unreachable/redundant conditionals.
		&noneGuardDetector{},
		&isinstanceGuardDetector{},
		// Category 2: dead code.
		&deadSymbolDetector{},
		&unusedParameterDetector{},
		// Category 3: premature abstraction.
		&oneCallerHelperDetector{},
		&singleVariantEnumDetector{},
		&wrapperClassDetector{},
		&passthroughStructDetector{},
		// Category 4: shape simplifications.
		&booleanReturnDetector{},
		&accumulationLoopDetector{},
		&constructorLiteralDetector{},
		&lenTruthinessDetector{},
		&redundantElseDetector{},
		// Category 5: redundant documentation.
		&docstringDetector{},
		&commentDetector{},
		// Category 6: single-use bindings.
		&singleUseBindingDetector{},
	}
}

// Run applies every registered detector to one file and returns the
// candidates in deterministic order.
func Run(f *source.File) []*Finding {
	var out []*Finding
	for _, d := range Registry() {
		out = append(out, d.Detect(f)...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartLine != out[j].StartLine {
			return out[i].StartLine < out[j].StartLine
		}
		return out[i].ID < out[j].ID
	})
	return out
}
