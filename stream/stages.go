package stream

// Stage is one step of a long-running operation's progress narration.
type Stage struct {
	Status  string
	Message string
}

// Plan is the ordered stage sequence for one operation kind. Stage pacing is
// presentational; only monotonic progress and a single terminal event are
// contractual.
type Plan struct {
	Stages []Stage
}

// PlanFor returns the stage plan for an operation kind. Every plan starts by
// reading inputs; a finalizing stage is emitted separately once the backend
// responds.
func PlanFor(kind string) Plan {
	switch kind {
	case KindModify:
		return Plan{Stages: []Stage{
			{Status: "reading", Message: "reading input files"},
			{Status: "planning", Message: "planning changes"},
			{Status: "applying", Message: "applying modifications"},
			{Status: "verifying", Message: "verifying changes"},
		}}
	default:
		return Plan{Stages: []Stage{
			{Status: "reading", Message: "reading input files"},
			{Status: "parsing", Message: "parsing sources"},
			{Status: "analyzing", Message: "analyzing structure"},
			{Status: "reporting", Message: "generating insights"},
		}}
	}
}

// progressAt spaces intermediate stage percentages evenly below the
// finalizing stage so values are strictly increasing.
func progressAt(index, total int) int {
	if total == 0 {
		return 0
	}
	return (index + 1) * 90 / total
}
