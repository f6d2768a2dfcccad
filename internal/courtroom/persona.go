package courtroom

import (
	"fmt"
	"strings"
)

// Persona is one of the three scripted courtroom roles driven by the
// language model. The student speaks as the defendant; the engine only
// ever requests judge and prosecutor utterances, but all three personas
// are addressable so a case author can script defendant interjections.
type Persona string

const (
	PersonaJudge      Persona = "rechter"
	PersonaProsecutor Persona = "officier"
	PersonaDefendant  Persona = "verdachte"
)

type personaProfile struct {
	displayName string
	instruction string
}

var personaProfiles = map[Persona]personaProfile{
	PersonaJudge: {
		displayName: "Rechter Van der Berg",
		instruction: "Je bent Rechter Van der Berg. Leid het gesprek neutraal, stel verhelderende vragen, zorg voor orde. Presenteer bewijs alleen als dat nodig is voor verduidelijking. Wees kort maar autoritair.",
	},
	PersonaProsecutor: {
		displayName: "Officier Jansen",
		instruction: "Je bent Officier van Justitie Jansen. Presenteer bewijs uit de lijst, stel kritische vragen, probeer schuld aan te tonen. Gebruik het beschikbare bewijs strategisch. Wees professioneel maar assertief.",
	},
	PersonaDefendant: {
		displayName: "Alex Vermeer",
		instruction: "Je bent Alex Vermeer, de verdachte. Reageer menselijk en emotioneel op beschuldigingen. Je kunt onschuldig zijn of schuldig maar met verklaringen. Wees authentiek.",
	},
}

func (p Persona) Valid() bool {
	_, ok := personaProfiles[p]
	return ok
}

func (p Persona) DisplayName() string {
	return personaProfiles[p].displayName
}

// Prompt is the payload handed to the chat-completion gateway.
type Prompt struct {
	System string
	User   string
}

const reactLine = "Reageer nu kort maar realistisch als jouw karakter in deze rechtszaal situatie."

// BuildPrompt assembles the full persona context for one turn: case
// header, evidence list, the transcript so far, the situational
// directive, an optional quotation of the message being reacted to, and
// the persona's behavioral instruction. Pure; an unknown persona is a
// programming error.
func BuildPrompt(c *Case, transcript []Turn, persona Persona, situation, reactTo string) (Prompt, error) {
	profile, ok := personaProfiles[persona]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown persona %q", persona)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "RECHTSZAAK: %s\n", c.Title)
	fmt.Fprintf(&b, "BESCHRIJVING: %s\n", c.Description)
	fmt.Fprintf(&b, "BEWIJS: %s\n\n", strings.Join(c.Evidence, "; "))

	if len(transcript) > 0 {
		b.WriteString("GESPREKSVERLOOP TOT NU:\n")
		for _, turn := range transcript {
			fmt.Fprintf(&b, "%s: %s\n", turn.Speaker, turn.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "HUIDIGE SITUATIE: %s\n", situation)
	if reactTo != "" {
		fmt.Fprintf(&b, "REAGEER OP: %q\n", reactTo)
	}
	b.WriteString("\n")
	b.WriteString(profile.instruction)

	return Prompt{System: b.String(), User: reactLine}, nil
}
