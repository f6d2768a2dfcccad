package courtroom

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func testCase() *Case {
	return &Case{
		ID:          uuid.New(),
		Title:       "De Verdwenen Fiets",
		Description: "Een fiets is gestolen bij het station.",
		Evidence:    []string{"Camerabeelden van het station", "Getuigenverklaring van de conciërge"},
	}
}

func TestBuildPrompt_IncludesCaseAndEvidence(t *testing.T) {
	c := testCase()
	prompt, err := BuildPrompt(c, nil, PersonaJudge, "Open de zitting.", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(prompt.System, "RECHTSZAAK: De Verdwenen Fiets") {
		t.Fatalf("missing case title in system prompt:\n%s", prompt.System)
	}
	if !strings.Contains(prompt.System, "Camerabeelden van het station; Getuigenverklaring van de conciërge") {
		t.Fatalf("evidence not joined with semicolons:\n%s", prompt.System)
	}
	if !strings.Contains(prompt.System, "HUIDIGE SITUATIE: Open de zitting.") {
		t.Fatalf("missing situation line:\n%s", prompt.System)
	}
	if strings.Contains(prompt.System, "GESPREKSVERLOOP") {
		t.Fatalf("empty transcript should omit the history block")
	}
	if !strings.Contains(prompt.System, "Rechter Van der Berg") {
		t.Fatalf("missing persona instruction:\n%s", prompt.System)
	}
	if prompt.User != reactLine {
		t.Fatalf("unexpected user message: %q", prompt.User)
	}
}

func TestBuildPrompt_TranscriptAndReactTo(t *testing.T) {
	c := testCase()
	transcript := []Turn{
		{Role: RolePersona, Speaker: "Rechter Van der Berg", Message: "De zitting is geopend."},
		{Role: RoleStudent, Speaker: speakerStudent, Message: "Ik was er niet bij."},
	}
	prompt, err := BuildPrompt(c, transcript, PersonaProsecutor, "Reageer op de verdachte.", "Ik was er niet bij.")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !strings.Contains(prompt.System, "GESPREKSVERLOOP TOT NU:\nRechter Van der Berg: De zitting is geopend.\n") {
		t.Fatalf("transcript not rendered in order:\n%s", prompt.System)
	}
	if !strings.Contains(prompt.System, `REAGEER OP: "Ik was er niet bij."`) {
		t.Fatalf("missing quoted react line:\n%s", prompt.System)
	}
	if !strings.Contains(prompt.System, "Officier van Justitie Jansen") {
		t.Fatalf("missing prosecutor instruction:\n%s", prompt.System)
	}
}

func TestBuildPrompt_UnknownPersona(t *testing.T) {
	if _, err := BuildPrompt(testCase(), nil, Persona("griffier"), "x", ""); err == nil {
		t.Fatalf("expected error for unknown persona")
	}
}

func TestPersona_DisplayNames(t *testing.T) {
	tests := []struct {
		persona Persona
		name    string
	}{
		{PersonaJudge, "Rechter Van der Berg"},
		{PersonaProsecutor, "Officier Jansen"},
		{PersonaDefendant, "Alex Vermeer"},
	}
	for _, tc := range tests {
		if !tc.persona.Valid() {
			t.Fatalf("%q should be valid", tc.persona)
		}
		if got := tc.persona.DisplayName(); got != tc.name {
			t.Fatalf("DisplayName(%q) = %q, want %q", tc.persona, got, tc.name)
		}
	}
	if Persona("bode").Valid() {
		t.Fatalf("unknown persona should be invalid")
	}
}

func TestPhase_Ordering(t *testing.T) {
	if !PhaseEnded.After(PhaseNotStarted) {
		t.Fatalf("ended should come after not_started")
	}
	if PhaseOpening.After(PhaseActive) {
		t.Fatalf("opening should not come after active")
	}
	if PhaseActive.After(PhaseActive) {
		t.Fatalf("After should be strict")
	}
	if Phase("paused").Valid() {
		t.Fatalf("unknown phase should be invalid")
	}
}
