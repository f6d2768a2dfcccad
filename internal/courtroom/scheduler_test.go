package courtroom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakeGateway struct {
	mu     sync.Mutex
	calls  int
	failAt map[int]error
	errAll error
}

func (g *fakeGateway) Generate(ctx context.Context, credential, model string, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.errAll != nil {
		return "", g.errAll
	}
	if err, ok := g.failAt[g.calls]; ok {
		return "", err
	}
	return fmt.Sprintf("reactie %d", g.calls), nil
}

type fakeStore struct {
	mu           sync.Mutex
	saves        [][]Turn
	finalized    bool
	finalScore   int
	finalElapsed int
	finalLog     []Turn
	finalizeErr  error
	achievements []string
	recordErr    map[string]error
	completed    int
	completedErr error
}

func (s *fakeStore) SaveTranscript(ctx context.Context, sessionID uuid.UUID, transcript []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Turn, len(transcript))
	copy(cp, transcript)
	s.saves = append(s.saves, cp)
	return nil
}

func (s *fakeStore) FinalizeSession(ctx context.Context, sessionID uuid.UUID, transcript []Turn, score, elapsedSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return s.finalizeErr
	}
	s.finalized = true
	s.finalScore = score
	s.finalElapsed = elapsedSeconds
	s.finalLog = transcript
	return nil
}

func (s *fakeStore) RecordAchievement(ctx context.Context, userID uuid.UUID, achievementType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.recordErr[achievementType]; ok {
		return err
	}
	s.achievements = append(s.achievements, achievementType)
	return nil
}

func (s *fakeStore) CountCompletedSessions(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed, s.completedErr
}

type fixedRand struct{ v float64 }

func (r fixedRand) Float64() float64 { return r.v }

func testParams() Params {
	p := DefaultParams()
	p.TurnDelay = 0
	p.ClosingDelay = 0
	p.VerdictDelay = 0
	return p
}

func newTestScheduler(gw *fakeGateway, store *fakeStore, randVal float64) *Scheduler {
	sch := NewScheduler(testParams(), gw, store, nil, testLogger())
	sch.async = false
	sch.rand = fixedRand{v: randVal}
	return sch
}

func newTestSession(c *Case) *Session {
	return NewSession(uuid.New(), uuid.New(), c, "gpt-4o-mini", "sk-test")
}

func TestScheduler_StartRunsOpeningSequence(t *testing.T) {
	gw := &fakeGateway{}
	store := &fakeStore{completed: 1}
	sch := newTestScheduler(gw, store, 0.9)
	sess := newTestSession(testCase())

	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snap := sess.Snapshot()
	if snap.Phase != PhaseActive {
		t.Fatalf("expected active after opening, got %q", snap.Phase)
	}
	if len(snap.Transcript) != 2 {
		t.Fatalf("expected judge opening + first evidence, got %d turns", len(snap.Transcript))
	}
	if snap.Transcript[0].Speaker != "Rechter Van der Berg" || snap.Transcript[1].Speaker != "Officier Jansen" {
		t.Fatalf("unexpected speakers: %q, %q", snap.Transcript[0].Speaker, snap.Transcript[1].Speaker)
	}
	if snap.Responding {
		t.Fatalf("input should be enabled after opening")
	}
	if len(store.saves) == 0 || len(store.saves[len(store.saves)-1]) != 2 {
		t.Fatalf("expected autosaved transcript of 2 turns, got %d saves", len(store.saves))
	}
}

func TestScheduler_StartTwiceRejected(t *testing.T) {
	sch := newTestScheduler(&fakeGateway{}, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var stateErr *StateError
	if err := sch.Start(sess); !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestScheduler_SubmitBeforeStartRejected(t *testing.T) {
	sch := newTestScheduler(&fakeGateway{}, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	var stateErr *StateError
	if err := sch.Submit(sess, "hallo"); !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError, got %v", err)
	}
}

func TestScheduler_SubmitEmptyMessageRejected(t *testing.T) {
	sch := newTestScheduler(&fakeGateway{}, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var valErr *ValidationError
	if err := sch.Submit(sess, "   "); !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestScheduler_SubmitWhileRespondingRejected(t *testing.T) {
	sch := newTestScheduler(&fakeGateway{}, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	sess.mu.Lock()
	sess.responding = true
	sess.mu.Unlock()
	if err := sch.Submit(sess, "hallo"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestScheduler_JudgeTakesFirstInterventions(t *testing.T) {
	gw := &fakeGateway{}
	sch := newTestScheduler(gw, &fakeStore{}, 0.9) // above probability, judge only via minimum
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := sch.Submit(sess, "dat klopt niet"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	snap := sess.Snapshot()
	if snap.JudgeInterventions != 2 {
		t.Fatalf("expected 2 judge interventions, got %d", snap.JudgeInterventions)
	}
	if snap.EvidencePresented != 0 {
		t.Fatalf("expected no evidence yet, got %d", snap.EvidencePresented)
	}
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Speaker != "Rechter Van der Berg" {
		t.Fatalf("expected judge response, got %q", last.Speaker)
	}
}

func TestScheduler_JudgeInterventionCap(t *testing.T) {
	gw := &fakeGateway{}
	sch := newTestScheduler(gw, &fakeStore{completed: 1}, 0.0) // always below probability
	c := testCase()
	c.Evidence = []string{"e1", "e2", "e3", "e4", "e5"}
	sess := newTestSession(c)
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// The judge wins the coin flip every time but is capped at three
	// interventions; from the fourth turn on the prosecutor responds.
	for i := 0; i < 5; i++ {
		if err := sch.Submit(sess, "ik ontken alles"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	snap := sess.Snapshot()
	if snap.JudgeInterventions != 3 {
		t.Fatalf("expected interventions capped at 3, got %d", snap.JudgeInterventions)
	}
	if snap.EvidencePresented != 2 {
		t.Fatalf("expected 2 prosecutor responses, got %d", snap.EvidencePresented)
	}
}

func TestScheduler_EvidenceCapTriggersClosingAndScoring(t *testing.T) {
	gw := &fakeGateway{}
	store := &fakeStore{completed: 1}
	sch := newTestScheduler(gw, store, 0.9)
	c := testCase() // two pieces of evidence, effective cap 2
	sess := newTestSession(c)
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// Two judge turns for the minimum, then two prosecutor turns reach
	// the cap and run the closing sequence.
	for i := 0; i < 4; i++ {
		if err := sch.Submit(sess, "ik heb een goede verklaring daarvoor"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	snap := sess.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %q", snap.Phase)
	}
	if snap.EvidencePresented != 2 {
		t.Fatalf("expected evidence cap 2, got %d", snap.EvidencePresented)
	}
	// 2 opening + 4x(student+persona) + demand + verdict
	if len(snap.Transcript) != 12 {
		t.Fatalf("expected 12 turns, got %d", len(snap.Transcript))
	}
	demand := snap.Transcript[10]
	verdict := snap.Transcript[11]
	if demand.Speaker != "Officier Jansen" || verdict.Speaker != "Rechter Van der Berg" {
		t.Fatalf("closing order wrong: %q then %q", demand.Speaker, verdict.Speaker)
	}
	if !store.finalized {
		t.Fatalf("expected finalize write")
	}
	if store.finalScore != snap.Score || len(store.finalLog) != 12 {
		t.Fatalf("finalize payload mismatch: score %d vs %d, log %d", store.finalScore, snap.Score, len(store.finalLog))
	}
	// 50 base + 10 fast + 15 participation (4 turns) + 5 engagement (avg 36)
	if snap.Score != 80 {
		t.Fatalf("expected score 80, got %d", snap.Score)
	}
	wantBadges := []string{AchievementFirstCompletion, AchievementSpeedDemon}
	if len(store.achievements) != len(wantBadges) {
		t.Fatalf("unexpected achievements: %v", store.achievements)
	}
	for i, b := range wantBadges {
		if store.achievements[i] != b {
			t.Fatalf("unexpected achievements: %v", store.achievements)
		}
	}

	if err := sch.Submit(sess, "nog iets"); err == nil {
		t.Fatalf("expected submit rejected after end")
	}
}

func TestScheduler_CaseWithoutEvidenceClosesImmediately(t *testing.T) {
	gw := &fakeGateway{}
	store := &fakeStore{completed: 1}
	sch := newTestScheduler(gw, store, 0.9)
	sch.params.JudgeMinInterventions = 0
	c := testCase()
	c.Evidence = nil
	sess := newTestSession(c)
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// With nothing to present the first prosecutor response goes
	// straight to the closing sequence.
	if err := sch.Submit(sess, "ik ben onschuldig"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	snap := sess.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Fatalf("expected ended, got %q", snap.Phase)
	}
	if snap.EvidencePresented != 0 {
		t.Fatalf("expected no evidence counted, got %d", snap.EvidencePresented)
	}
	// 2 opening + student + prosecutor + demand + verdict
	if len(snap.Transcript) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(snap.Transcript))
	}
	if !store.finalized {
		t.Fatalf("expected finalize write")
	}
}

func TestScheduler_GatewayFailureAddsSystemTurn(t *testing.T) {
	gw := &fakeGateway{errAll: ErrInvalidCredential}
	sch := newTestScheduler(gw, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	snap := sess.Snapshot()
	if snap.Phase != PhaseActive {
		t.Fatalf("failed opening should still reach active, got %q", snap.Phase)
	}
	if len(snap.Transcript) != 1 || snap.Transcript[0].Role != RoleSystem {
		t.Fatalf("expected one system turn, got %#v", snap.Transcript)
	}
	if snap.Transcript[0].Message != "Ongeldige OpenAI API key. Update je profiel." {
		t.Fatalf("unexpected message: %q", snap.Transcript[0].Message)
	}

	if err := sch.Submit(sess, "hallo"); err != nil {
		t.Fatalf("input should be re-enabled after failure: %v", err)
	}
	snap = sess.Snapshot()
	last := snap.Transcript[len(snap.Transcript)-1]
	if last.Role != RoleSystem {
		t.Fatalf("expected system turn after failed response, got %q", last.Role)
	}
	if snap.Responding {
		t.Fatalf("input should be re-enabled after failure")
	}
}

func TestScheduler_RateLimitMessage(t *testing.T) {
	gw := &fakeGateway{errAll: ErrRateLimited}
	sch := newTestScheduler(gw, &fakeStore{}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snap := sess.Snapshot()
	if !strings.Contains(snap.Transcript[0].Message, "rate limit") {
		t.Fatalf("unexpected message: %q", snap.Transcript[0].Message)
	}
}

func TestScheduler_FailedClosingResumesOnNextSubmit(t *testing.T) {
	// Call 4 is the sentencing demand of the first closing attempt.
	gw := &fakeGateway{failAt: map[int]error{4: &ProviderError{Status: 500, Body: "boom"}}}
	store := &fakeStore{completed: 1}
	sch := newTestScheduler(gw, store, 0.9)
	sch.params.JudgeMinInterventions = 0
	c := testCase()
	c.Evidence = []string{"e1"} // effective cap 1
	sess := newTestSession(c)
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if err := sch.Submit(sess, "dat bewijs zegt niets"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snap := sess.Snapshot()
	if snap.Phase != PhaseClosing {
		t.Fatalf("expected closing after failed demand, got %q", snap.Phase)
	}
	if snap.Responding {
		t.Fatalf("input should be re-enabled to resume closing")
	}

	if err := sch.Submit(sess, "mag ik nog iets zeggen"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snap = sess.Snapshot()
	if snap.Phase != PhaseEnded {
		t.Fatalf("expected resumed closing to end the session, got %q", snap.Phase)
	}
	if !store.finalized {
		t.Fatalf("expected finalize write")
	}
}

func TestScheduler_EndNowFinalizes(t *testing.T) {
	gw := &fakeGateway{}
	store := &fakeStore{completed: 1}
	sch := newTestScheduler(gw, store, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	score, err := sch.EndNow(sess)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// 50 base + 10 fast, no student turns
	if score != 60 {
		t.Fatalf("expected score 60, got %d", score)
	}
	if sess.Phase() != PhaseEnded {
		t.Fatalf("expected ended, got %q", sess.Phase())
	}
	if !store.finalized || store.finalScore != 60 {
		t.Fatalf("expected finalize write with score 60")
	}
	if sess.ctx.Err() == nil {
		t.Fatalf("expected session context cancelled")
	}

	var stateErr *StateError
	if _, err := sch.EndNow(sess); !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError on second end, got %v", err)
	}
}

func TestScheduler_FinalizeErrorSkipsAchievements(t *testing.T) {
	gw := &fakeGateway{}
	store := &fakeStore{completed: 1, finalizeErr: errors.New("db down")}
	sch := newTestScheduler(gw, store, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := sch.EndNow(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(store.achievements) != 0 {
		t.Fatalf("achievements should be skipped when finalize fails, got %v", store.achievements)
	}
}

// slowSaveStore delays saves of one particular transcript length so a
// test can stage an older write overtaking a newer one.
type slowSaveStore struct {
	fakeStore
	slowLen int
	delay   time.Duration
}

func (s *slowSaveStore) SaveTranscript(ctx context.Context, sessionID uuid.UUID, transcript []Turn) error {
	if len(transcript) == s.slowLen {
		time.Sleep(s.delay)
	}
	return s.fakeStore.SaveTranscript(ctx, sessionID, transcript)
}

func TestScheduler_AutosaveNeverRegresses(t *testing.T) {
	store := &slowSaveStore{slowLen: 1, delay: 50 * time.Millisecond}
	sch := newTestScheduler(&fakeGateway{}, &fakeStore{}, 0.9)
	sch.store = store
	sess := newTestSession(testCase())

	turns := []Turn{
		{Role: RoleStudent, Speaker: speakerStudent, Message: "een"},
		{Role: RolePersona, Speaker: PersonaJudge.DisplayName(), Message: "twee"},
	}

	// Two appends in quick succession: the 1-turn save is slow, the
	// 2-turn save fast. Whatever the interleaving, the store must end up
	// with the longer transcript.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sch.autosave(sess, turns[:1])
	}()
	go func() {
		defer wg.Done()
		sch.autosave(sess, turns)
	}()
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.saves) == 0 {
		t.Fatalf("expected at least one save")
	}
	last := store.saves[len(store.saves)-1]
	if len(last) != 2 {
		t.Fatalf("store regressed to %d turns", len(last))
	}
	sess.mu.Lock()
	saved := sess.savedThrough
	sess.mu.Unlock()
	if saved != 2 {
		t.Fatalf("expected savedThrough 2, got %d", saved)
	}
}

func TestScheduler_CancelledGenerationDiscarded(t *testing.T) {
	gw := &fakeGateway{}
	sch := newTestScheduler(gw, &fakeStore{completed: 1}, 0.9)
	sess := newTestSession(testCase())
	if err := sch.Start(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := len(sess.Snapshot().Transcript)

	if _, err := sch.EndNow(sess); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// A cascade racing the termination sees the cancelled context and
	// appends nothing.
	sch.respond(sess, "te laat", false, false)
	if got := len(sess.Snapshot().Transcript); got != before {
		t.Fatalf("expected no turns after cancellation, got %d vs %d", got, before)
	}
}
