package preflight

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Kind   Kind
	Passed bool
	Detail string
}

// Kind tells callers which side of an operation a check guards, so they can
// map a failed check to the matching error kind.
type Kind int

const (
	KindSource Kind = iota
	KindDestination
	KindSpace
)

// SplitRequest names the inputs of a split readiness check.
type SplitRequest struct {
	SourcePath string
	OutputDir  string
	// NeedBytes is the space the parts will occupy; zero skips the free space check.
	NeedBytes uint64
}

// RunSplit executes the checks that must pass before a split writes anything.
func RunSplit(req SplitRequest) []Result {
	results := []Result{
		withKind(CheckSourceReadable("Source file", req.SourcePath), KindSource),
		withKind(CheckDirectoryAccess("Output directory", req.OutputDir), KindDestination),
	}
	if req.NeedBytes > 0 && results[1].Passed {
		results = append(results, withKind(CheckFreeSpace("Free space", req.OutputDir, req.NeedBytes), KindSpace))
	}
	return results
}

// RunCombine executes the checks that must pass before a combine streams
// output into dir.
func RunCombine(outputDir string, needBytes uint64) []Result {
	results := []Result{withKind(CheckDirectoryAccess("Output directory", outputDir), KindDestination)}
	if needBytes > 0 && results[0].Passed {
		results = append(results, withKind(CheckFreeSpace("Free space", outputDir, needBytes), KindSpace))
	}
	return results
}

// FirstFailure returns the first failed result, if any.
func FirstFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}

func withKind(r Result, kind Kind) Result {
	r.Kind = kind
	return r
}
