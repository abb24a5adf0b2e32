package export

import (
	"idcards/internal/card"
	"idcards/internal/employee"
)

// Step is one page to produce.
type Step struct {
	Side   card.Side
	Record *employee.Record // nil for the shared back
	Index  int              // 1-based record position, 0 for the back
}

// PlanPages orders fronts by input position and appends exactly one back
// page shared by every card.
func PlanPages(recs []employee.Record, opts Options) []Step {
	var steps []Step
	if opts.IncludeFront {
		for i := range recs {
			steps = append(steps, Step{Side: card.Front, Record: &recs[i], Index: i + 1})
		}
	}
	if opts.IncludeBack {
		steps = append(steps, Step{Side: card.Back})
	}
	return steps
}
