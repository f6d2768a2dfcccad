package courtroom

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jlcedu/rechtszaal-backend/internal/logger"
)

// Gateway produces one persona utterance from a prompt. Implementations
// make exactly one provider attempt per call.
type Gateway interface {
	Generate(ctx context.Context, credential, model string, prompt Prompt) (string, error)
}

// Store is the persistence boundary of the engine. SaveTranscript is a
// best-effort autosave; FinalizeSession is the authoritative final write.
type Store interface {
	SaveTranscript(ctx context.Context, sessionID uuid.UUID, transcript []Turn) error
	FinalizeSession(ctx context.Context, sessionID uuid.UUID, transcript []Turn, score, elapsedSeconds int) error
	RecordAchievement(ctx context.Context, userID uuid.UUID, achievementType string) error
	CountCompletedSessions(ctx context.Context, userID uuid.UUID) (int, error)
}

// Notifier pushes live session events to the student's open streams.
// Calls may arrive while the session lock is held, so implementations
// must not block.
type Notifier interface {
	TurnAppended(userID, sessionID uuid.UUID, turn Turn)
	PhaseChanged(userID, sessionID uuid.UUID, phase Phase)
	Completed(userID, sessionID uuid.UUID, score int, achievements []string)
	Failed(userID, sessionID uuid.UUID, message string)
}

type nopNotifier struct{}

func (nopNotifier) TurnAppended(uuid.UUID, uuid.UUID, Turn)       {}
func (nopNotifier) PhaseChanged(uuid.UUID, uuid.UUID, Phase)      {}
func (nopNotifier) Completed(uuid.UUID, uuid.UUID, int, []string) {}
func (nopNotifier) Failed(uuid.UUID, uuid.UUID, string)           {}

// Rand is the randomness source for the judge decision, injectable so
// tests can pin the outcome.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// Transcript speakers that are not personas.
const (
	speakerStudent = "Alex Vermeer (Verdachte - JIJ)"
	speakerSystem  = "Systeem"
)

// Situational directives handed to BuildPrompt for each automatic turn.
const (
	situationOpening         = "Je opent nu de rechtszaak over: %s. Er is het volgende bewijs beschikbaar: %s. Open de zitting formeel en vraag de officier om te beginnen."
	situationFirstEvidence   = "De rechter heeft de zitting geopend. Presenteer nu de zaak en het eerste stuk bewijs tegen de verdachte. Gebruik concreet bewijs uit de lijst."
	situationJudgeReact      = "De verdachte heeft geantwoord: %q. Reageer als rechter - stel vervolgvragen of vraag om verduidelijking. Leid het gesprek."
	situationProsecutorReact = "De verdachte zegt: %q. Reageer hierop als officier van justitie. Presenteer nieuw bewijs of stel kritische vervolgvragen. Gebruik het beschikbare bewijs."
	situationClosingDemand   = "Het gesprek heeft lang genoeg geduurd. Doe nu je strafeis gebaseerd op al het gepresenteerde bewijs en de reacties van de verdachte. Wees concreet over straf."
	situationVerdict         = "Na het horen van alle argumenten en bewijs, doe nu uitspraak als rechter. Weeg het bewijs en de verdediging tegen elkaar af en kom tot een vonnis."
)

const (
	persistTimeout  = 10 * time.Second
	finalizeTimeout = 15 * time.Second
)

// Scheduler drives sessions through their phases: it appends student
// turns, generates persona responses, runs the closing sequence and
// finalizes. One persona cascade runs per session at a time.
type Scheduler struct {
	params    Params
	gateway   Gateway
	store     Store
	notifier  Notifier
	evaluator *AchievementEvaluator
	rand      Rand
	log       *logger.Logger

	// async is cleared by in-package tests so cascades run inline.
	async bool
}

func NewScheduler(params Params, gateway Gateway, store Store, notifier Notifier, log *logger.Logger) *Scheduler {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Scheduler{
		params:    params,
		gateway:   gateway,
		store:     store,
		notifier:  notifier,
		evaluator: NewAchievementEvaluator(store, log),
		rand:      globalRand{},
		log:       log.With("component", "Scheduler"),
		async:     true,
	}
}

// Start opens the session: the judge opens the hearing, then the
// prosecutor presents the first piece of evidence, after which the
// student may respond.
func (sch *Scheduler) Start(sess *Session) error {
	sess.mu.Lock()
	if err := sess.advanceLocked("start", PhaseOpening); err != nil {
		sess.mu.Unlock()
		return err
	}
	sess.responding = true
	sess.mu.Unlock()

	sch.notifier.PhaseChanged(sess.UserID, sess.ID, PhaseOpening)
	sch.run(func() { sch.opening(sess) })
	return nil
}

func (sch *Scheduler) opening(sess *Session) {
	situation := fmt.Sprintf(situationOpening, sess.Case.Description, strings.Join(sess.Case.Evidence, ", "))
	judgeOK := sch.personaTurn(sess, PersonaJudge, situation, "")

	// The hearing counts as opened once the judge has had the floor,
	// whether or not the utterance came through. Keeping the phase at
	// opening would lock the student out for good.
	sess.mu.Lock()
	if sess.finalized {
		sess.mu.Unlock()
		return
	}
	if err := sess.advanceLocked("opening", PhaseActive); err != nil {
		sess.mu.Unlock()
		return
	}
	sess.mu.Unlock()
	sch.notifier.PhaseChanged(sess.UserID, sess.ID, PhaseActive)

	if judgeOK {
		if sch.sleep(sess.ctx, sch.params.TurnDelay) != nil {
			return
		}
		sch.personaTurn(sess, PersonaProsecutor, situationFirstEvidence, "")
	}

	sess.mu.Lock()
	sess.responding = false
	sess.mu.Unlock()
}

// Submit records a student turn and schedules the persona response. It
// returns immediately; the response arrives through the notifier.
func (sch *Scheduler) Submit(sess *Session, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return &ValidationError{Reason: "bericht mag niet leeg zijn"}
	}

	sess.mu.Lock()
	if sess.phase != PhaseActive && sess.phase != PhaseClosing {
		sess.mu.Unlock()
		return &StateError{Op: "submit", Phase: sess.phase}
	}
	if sess.responding {
		sess.mu.Unlock()
		return ErrBusy
	}

	sch.appendLocked(sess, Turn{Role: RoleStudent, Speaker: speakerStudent, Message: message, Timestamp: time.Now()})
	sess.responding = true

	if sess.phase == PhaseClosing {
		// Only reachable after a failed closing sequence; the student's
		// extra word restarts it.
		resume := !sess.closingDemandDone
		sess.closingDemandDone = true
		sess.mu.Unlock()
		if resume {
			sch.run(func() { sch.closingSequence(sess) })
		} else {
			sess.mu.Lock()
			sess.responding = false
			sess.mu.Unlock()
		}
		return nil
	}

	// Judge decision: the judge always takes the first interventions,
	// then yields the floor by probability, and never exceeds the cap.
	ji := sess.judgeInterventions
	judgeTurn := (sch.rand.Float64() < sch.params.JudgeProbability || ji < sch.params.JudgeMinInterventions) &&
		ji < sch.params.JudgeMaxInterventions
	limit := sch.effectiveEvidenceCap(sess.Case)
	if judgeTurn {
		sess.judgeInterventions++
	} else if limit > 0 {
		// A case without evidence has nothing to present; the counter
		// stays at zero and the closing sequence starts right away.
		sess.evidencePresented++
	}
	startClosing := !judgeTurn && sess.evidencePresented >= limit
	sess.mu.Unlock()

	sch.run(func() { sch.respond(sess, message, judgeTurn, startClosing) })
	return nil
}

func (sch *Scheduler) respond(sess *Session, studentMsg string, judgeTurn, startClosing bool) {
	if sch.sleep(sess.ctx, sch.params.TurnDelay) != nil {
		return
	}

	persona := PersonaProsecutor
	situation := fmt.Sprintf(situationProsecutorReact, studentMsg)
	if judgeTurn {
		persona = PersonaJudge
		situation = fmt.Sprintf(situationJudgeReact, studentMsg)
	}
	sch.personaTurn(sess, persona, situation, studentMsg)

	// The closing sequence starts once enough evidence has been
	// presented, even when the last prosecutor utterance failed.
	if startClosing {
		sess.mu.Lock()
		if sess.finalized {
			sess.mu.Unlock()
			return
		}
		if err := sess.advanceLocked("closing", PhaseClosing); err != nil {
			sess.mu.Unlock()
			return
		}
		sess.closingDemandDone = true
		sess.mu.Unlock()
		sch.notifier.PhaseChanged(sess.UserID, sess.ID, PhaseClosing)
		sch.closingSequence(sess)
		return
	}

	sess.mu.Lock()
	sess.responding = false
	sess.mu.Unlock()
}

// closingSequence runs the prosecutor's sentencing demand, the judge's
// verdict, and finalizes the session.
func (sch *Scheduler) closingSequence(sess *Session) {
	if sch.sleep(sess.ctx, sch.params.ClosingDelay) != nil {
		return
	}
	if !sch.personaTurn(sess, PersonaProsecutor, situationClosingDemand, "") {
		sch.abortClosing(sess)
		return
	}
	if sch.sleep(sess.ctx, sch.params.VerdictDelay) != nil {
		return
	}
	if !sch.personaTurn(sess, PersonaJudge, situationVerdict, "") {
		sch.abortClosing(sess)
		return
	}

	sess.mu.Lock()
	sch.finalizeLocked(sess)
	sess.mu.Unlock()
}

// abortClosing reopens the floor after a failed closing sequence so the
// student's next turn can restart it.
func (sch *Scheduler) abortClosing(sess *Session) {
	sess.mu.Lock()
	if !sess.finalized {
		sess.closingDemandDone = false
		sess.responding = false
	}
	sess.mu.Unlock()
}

// EndNow terminates the session immediately. In-flight generations are
// cancelled and their results discarded.
func (sch *Scheduler) EndNow(sess *Session) (int, error) {
	sess.cancel()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.finalized {
		return sess.score, &StateError{Op: "end", Phase: sess.phase}
	}
	sch.finalizeLocked(sess)
	return sess.score, nil
}

// personaTurn builds the prompt, calls the gateway once and appends the
// result. A failure appends a system turn with the student-facing
// message instead. Returns whether the persona actually spoke.
func (sch *Scheduler) personaTurn(sess *Session, persona Persona, situation, reactTo string) bool {
	sess.mu.Lock()
	if sess.finalized {
		sess.mu.Unlock()
		return false
	}
	transcript := sess.transcriptCopyLocked()
	sess.mu.Unlock()

	prompt, err := BuildPrompt(sess.Case, transcript, persona, situation, reactTo)
	if err == nil {
		var reply string
		reply, err = sch.gateway.Generate(sess.ctx, sess.Credential, sess.Model, prompt)
		if err == nil {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if sess.finalized || sess.ctx.Err() != nil {
				return false
			}
			sch.appendLocked(sess, Turn{Role: RolePersona, Speaker: persona.DisplayName(), Message: reply, Timestamp: time.Now()})
			return true
		}
	}

	if sess.ctx.Err() != nil {
		return false
	}
	sch.log.Warn("persona turn failed", "session_id", sess.ID.String(), "persona", string(persona), "error", err)

	userMsg := UserMessage(err)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.finalized {
		return false
	}
	sch.appendLocked(sess, Turn{Role: RoleSystem, Speaker: speakerSystem, Message: userMsg, Timestamp: time.Now()})
	sch.notifier.Failed(sess.UserID, sess.ID, userMsg)
	return false
}

// appendLocked appends a turn, notifies listeners and autosaves the
// transcript. Caller holds sess.mu.
func (sch *Scheduler) appendLocked(sess *Session, turn Turn) {
	sess.transcript = append(sess.transcript, turn)
	sch.notifier.TurnAppended(sess.UserID, sess.ID, turn)

	snapshot := sess.transcriptCopyLocked()
	if sch.async {
		go sch.autosave(sess, snapshot)
		return
	}
	ctx, cancelFn := context.WithTimeout(context.WithoutCancel(sess.ctx), persistTimeout)
	defer cancelFn()
	if err := sch.store.SaveTranscript(ctx, sess.ID, snapshot); err != nil {
		sch.log.Warn("transcript autosave failed", "session_id", sess.ID.String(), "error", err)
		return
	}
	sess.savedThrough = len(snapshot)
}

// autosave is best effort: a failed save is retried implicitly by the
// next append, and the finalize write carries the full transcript.
// saveMu keeps concurrent autosaves in order; once a longer snapshot
// has been written, shorter ones are dropped at the stale check.
func (sch *Scheduler) autosave(sess *Session, snapshot []Turn) {
	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	sess.mu.Lock()
	stale := len(snapshot) <= sess.savedThrough || sess.finalized
	sess.mu.Unlock()
	if stale {
		return
	}

	ctx, cancelFn := context.WithTimeout(context.WithoutCancel(sess.ctx), persistTimeout)
	defer cancelFn()
	if err := sch.store.SaveTranscript(ctx, sess.ID, snapshot); err != nil {
		sch.log.Warn("transcript autosave failed", "session_id", sess.ID.String(), "error", err)
		return
	}

	sess.mu.Lock()
	if len(snapshot) > sess.savedThrough {
		sess.savedThrough = len(snapshot)
	}
	sess.mu.Unlock()
}

// finalizeLocked ends the session: computes the score, persists the
// outcome, grants achievements and notifies. Caller holds sess.mu.
// Idempotent via the finalized flag.
func (sch *Scheduler) finalizeLocked(sess *Session) {
	if sess.finalized {
		return
	}
	sess.finalized = true
	sess.phase = PhaseEnded
	sess.responding = false
	sess.cancel()

	elapsed := sess.ElapsedSeconds()
	transcript := sess.transcriptCopyLocked()
	sess.score = sch.params.Score.Compute(elapsed, studentMessages(transcript))
	sess.savedThrough = len(transcript)

	sch.notifier.PhaseChanged(sess.UserID, sess.ID, PhaseEnded)

	ctx, cancelFn := context.WithTimeout(context.WithoutCancel(sess.ctx), finalizeTimeout)
	defer cancelFn()

	var granted []string
	if err := sch.store.FinalizeSession(ctx, sess.ID, transcript, sess.score, elapsed); err != nil {
		sch.log.Error("session finalize write failed", "session_id", sess.ID.String(), "error", err)
	} else {
		granted = sch.evaluator.Evaluate(ctx, sess.UserID, sess.score, elapsed)
	}
	sch.notifier.Completed(sess.UserID, sess.ID, sess.score, granted)
}

func (sch *Scheduler) effectiveEvidenceCap(c *Case) int {
	limit := sch.params.EvidenceCap
	if len(c.Evidence) < limit {
		limit = len(c.Evidence)
	}
	return limit
}

func (sch *Scheduler) run(fn func()) {
	if sch.async {
		go fn()
		return
	}
	fn()
}

// sleep waits for d or until the session is cancelled.
func (sch *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
