package courtroom

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Case is the static scenario a session plays out. Immutable during the
// session.
type Case struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Evidence        []string
	DifficultyLevel int
	Category        string
}

// Turn roles.
const (
	RolePersona = "persona"
	RoleStudent = "student"
	RoleSystem  = "system"
)

// Turn is one utterance. Append-only; never reordered or mutated.
type Turn struct {
	Role      string    `json:"role"`
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one active simulation instance, owned by a single student.
// All mutable state is guarded by mu; the scheduler is the only writer.
type Session struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	Case       *Case
	Model      string
	Credential string

	// startedAt is set once at creation and never mutated, so it may be
	// read without holding mu.
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// saveMu serializes transcript writes to the store so a slow older
	// autosave can never land after a newer one. Always acquired before
	// mu, never while holding it.
	saveMu sync.Mutex

	mu                 sync.Mutex
	phase              Phase
	judgeInterventions int
	evidencePresented  int
	closingDemandDone  bool
	responding         bool
	finalized          bool
	score              int
	transcript         []Turn
	savedThrough       int
}

func NewSession(id, userID uuid.UUID, c *Case, model, credential string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:         id,
		UserID:     userID,
		Case:       c,
		Model:      model,
		Credential: credential,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		phase:      PhaseNotStarted,
	}
}

// Abort cancels in-flight work without finalizing. Used when a session
// is replaced by a restart; nothing more is persisted for it.
func (s *Session) Abort() {
	s.cancel()
	s.mu.Lock()
	s.finalized = true
	s.phase = PhaseEnded
	s.responding = false
	s.mu.Unlock()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) ElapsedSeconds() int {
	return int(time.Since(s.startedAt).Seconds())
}

// advanceLocked moves the session forward. Jumping ahead is allowed,
// regressing or leaving ended is not. Caller holds mu.
func (s *Session) advanceLocked(op string, to Phase) error {
	if s.phase == PhaseEnded || !to.After(s.phase) {
		return &StateError{Op: op, Phase: s.phase}
	}
	s.phase = to
	return nil
}

// Snapshot is a consistent read-only copy of the session for API reads.
type Snapshot struct {
	ID                 uuid.UUID `json:"id"`
	CaseID             uuid.UUID `json:"case_id"`
	Phase              Phase     `json:"phase"`
	JudgeInterventions int       `json:"judge_interventions"`
	EvidencePresented  int       `json:"evidence_presented"`
	Responding         bool      `json:"responding"`
	Score              int       `json:"score"`
	ElapsedSeconds     int       `json:"elapsed_seconds"`
	Transcript         []Turn    `json:"transcript"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	transcript := make([]Turn, len(s.transcript))
	copy(transcript, s.transcript)
	return Snapshot{
		ID:                 s.ID,
		CaseID:             s.Case.ID,
		Phase:              s.phase,
		JudgeInterventions: s.judgeInterventions,
		EvidencePresented:  s.evidencePresented,
		Responding:         s.responding,
		Score:              s.score,
		ElapsedSeconds:     s.ElapsedSeconds(),
		Transcript:         transcript,
	}
}

// transcriptCopyLocked returns a copy safe to hand to goroutines.
func (s *Session) transcriptCopyLocked() []Turn {
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}
