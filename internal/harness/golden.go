package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares the stable surface of a run, the scenario name
// and the dataset filename it maps to, against the committed golden file.
// Numeric identity is covered separately by the table fingerprint, which
// makes rebuilt identical tables collapse onto one stored dataset.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, result *Result) {
	t.Helper()
	summary := fmt.Sprintf("scenario: %s\nfilename: %s\n", result.Scenario, result.Filename)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Scenario, []byte(summary))
}
