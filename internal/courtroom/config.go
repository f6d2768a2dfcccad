package courtroom

import "time"

// Params collects the tuning constants of the simulation. The values are
// product tuning, not invariants: tests shorten the delays to zero and
// pin the random source instead of relying on these defaults.
type Params struct {
	// JudgeProbability is the chance the judge takes the floor after a
	// student turn. Below JudgeMinInterventions the judge always
	// responds; at JudgeMaxInterventions the prosecutor always does.
	JudgeProbability      float64
	JudgeMinInterventions int
	JudgeMaxInterventions int

	// EvidenceCap bounds how many prosecutor responses are needed before
	// the closing sequence starts; the effective cap is
	// min(EvidenceCap, len(case.Evidence)).
	EvidenceCap int

	// Pauses before automatic persona turns, modeling response time.
	TurnDelay    time.Duration
	ClosingDelay time.Duration
	VerdictDelay time.Duration

	Score ScoreParams
}

func DefaultParams() Params {
	return Params{
		JudgeProbability:      0.4,
		JudgeMinInterventions: 2,
		JudgeMaxInterventions: 3,
		EvidenceCap:           4,
		TurnDelay:             2 * time.Second,
		ClosingDelay:          8 * time.Second,
		VerdictDelay:          4 * time.Second,
		Score:                 DefaultScoreParams(),
	}
}
