package courtroom

// ScoreParams defines the scoring brackets. Brackets are evaluated in
// order; the first matching bonus wins within each category.
type ScoreParams struct {
	Base int

	// Time bonus: elapsed seconds strictly below TimeBounds[i] earns
	// TimeBonuses[i]; past the last bound no bonus.
	TimeBounds  []int
	TimeBonuses []int

	// Participation bonus: at least ParticipationCounts[i] student turns
	// earns ParticipationBonuses[i].
	ParticipationCounts  []int
	ParticipationBonuses []int

	// Engagement bonus: mean student message length strictly above
	// EngagementLengths[i] earns EngagementBonuses[i].
	EngagementLengths []int
	EngagementBonuses []int
}

func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		Base:                 50,
		TimeBounds:           []int{300, 600, 900, 1200},
		TimeBonuses:          []int{10, 20, 15, 10},
		ParticipationCounts:  []int{5, 3, 1},
		ParticipationBonuses: []int{20, 15, 10},
		EngagementLengths:    []int{100, 50, 20},
		EngagementBonuses:    []int{15, 10, 5},
	}
}

// Compute derives the session score from elapsed time and the student's
// messages. Deterministic, pure, clamped to [0,100].
func (p ScoreParams) Compute(elapsedSeconds int, studentMessages []string) int {
	score := p.Base

	for i, bound := range p.TimeBounds {
		if elapsedSeconds < bound {
			score += p.TimeBonuses[i]
			break
		}
	}

	n := len(studentMessages)
	for i, count := range p.ParticipationCounts {
		if n >= count {
			score += p.ParticipationBonuses[i]
			break
		}
	}

	// No turns means no average; the engagement bonus only applies when
	// the student actually spoke.
	if n > 0 {
		total := 0
		for _, msg := range studentMessages {
			total += len(msg)
		}
		avg := float64(total) / float64(n)
		for i, length := range p.EngagementLengths {
			if avg > float64(length) {
				score += p.EngagementBonuses[i]
				break
			}
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ComputeScore applies the default brackets.
func ComputeScore(elapsedSeconds int, studentMessages []string) int {
	return DefaultScoreParams().Compute(elapsedSeconds, studentMessages)
}

func studentMessages(transcript []Turn) []string {
	var out []string
	for _, turn := range transcript {
		if turn.Role == RoleStudent {
			out = append(out, turn.Message)
		}
	}
	return out
}
