package pipeline

import "fmt"

// Stage names a pipeline step.
type Stage string

// Stages in execution order.
const (
	StageDiscover Stage = "discover"
	StageExtract  Stage = "extract"
	StageOCR      Stage = "ocr"
	StageParse    Stage = "parse"
	StageExport   Stage = "export"
	StageLoad     Stage = "load"
)

// Order lists every stage in the order Run executes them.
var Order = []Stage{StageDiscover, StageExtract, StageOCR, StageParse, StageExport, StageLoad}

// Number returns the 1-based position of s in Order, or 0.
func (s Stage) Number() int {
	for i, o := range Order {
		if o == s {
			return i + 1
		}
	}
	return 0
}

// StageError wraps the first fatal error of a run with the stage it came from.
type StageError struct {
	Stage Stage
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}
