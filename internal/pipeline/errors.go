package pipeline

import "fmt"

// Stage names the pipeline step a failure occurred in.
type Stage string

const (
	StageCatalogue   Stage = "catalogue"
	StageIngest      Stage = "ingest"
	StageQuality     Stage = "quality"
	StageExtinction  Stage = "extinction"
	StageDerived     Stage = "derived"
	StageMetallicity Stage = "metallicity"
)

// BuildError wraps a failure in one pipeline stage with enough context
// to rerun the offending galaxy or step by hand.
type BuildError struct {
	Stage  Stage
	Galaxy string // empty for whole-table stages
	Err    error
}

func (e *BuildError) Error() string {
	if e.Galaxy != "" {
		return fmt.Sprintf("%s: galaxy %s: %v", e.Stage, e.Galaxy, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

func stageErr(stage Stage, galaxy string, err error) error {
	return &BuildError{Stage: stage, Galaxy: galaxy, Err: err}
}
