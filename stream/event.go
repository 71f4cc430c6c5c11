package stream

// SSE event names emitted on a progress stream.
const (
	EventProgress = "progress"
	EventInfo     = "info"
	EventError    = "error"
	EventResult   = "result"
)

// ProgressEvent reports a stage of a long-running operation. Progress is a
// percentage in [0,100], non-decreasing within a session.
type ProgressEvent struct {
	Status     string                 `json:"status"`
	Message    string                 `json:"message"`
	Progress   int                    `json:"progress"`
	Step       int                    `json:"step,omitempty"`
	TotalSteps int                    `json:"totalSteps,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
}
