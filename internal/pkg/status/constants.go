package status

// Review represents a record's review status
type Review int

const (
	// Untested value - record was never judged by an operator
	Untested Review = iota + 1
	// Correct - operator approved the pronunciation
	Correct
	// NeedsReview - operator flagged the pronunciation
	NeedsReview
)

var (
	reviewName = map[Review]string{Untested: "untested", Correct: "correct",
		NeedsReview: "needs_review"}
	nameReview = map[string]Review{"untested": Untested, "correct": Correct,
		"needs_review": NeedsReview}
)

func (st Review) String() string {
	return reviewName[st]
}

// From returns review status obj from string
func From(st string) Review {
	return nameReview[st]
}

// Run represents a bulk run status
type Run int

const (
	// Queued value
	Queued Run = iota + 1
	// Working step
	Working
	// Done - final step
	Done
)

var (
	runName = map[Run]string{Queued: "QUEUED", Working: "Working", Done: "DONE"}
	nameRun = map[string]Run{"QUEUED": Queued, "Working": Working, "DONE": Done}
)

func (st Run) String() string {
	return runName[st]
}

// RunFrom returns run status obj from string
func RunFrom(st string) Run {
	return nameRun[st]
}
