package courtroom

// Phase is the stage of a courtroom session. Phases only ever move
// forward through the fixed ordering below; skipping ahead is allowed
// (manual termination jumps straight to ended), regressing is not.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseOpening    Phase = "opening"
	PhaseActive     Phase = "active"
	PhaseClosing    Phase = "closing"
	PhaseEnded      Phase = "ended"
)

var phaseOrder = map[Phase]int{
	PhaseNotStarted: 0,
	PhaseOpening:    1,
	PhaseActive:     2,
	PhaseClosing:    3,
	PhaseEnded:      4,
}

func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// After reports whether p comes strictly later than q in the session ordering.
func (p Phase) After(q Phase) bool {
	return phaseOrder[p] > phaseOrder[q]
}
