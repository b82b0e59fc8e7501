package provider

import (
	"fmt"
	"strings"

	"postpilot/internal/usecase/generate"
)

const maxFacts = 8

// factsSystem instructs the model to act as an extractor, not a writer.
// The sentinel must come back verbatim so the orchestrator can detect it.
var factsSystem = strings.Join([]string{
	"You extract grounded facts from source material for a ghostwriter.",
	fmt.Sprintf("Return up to %d short factual statements, one per line, each starting with \"- \".", maxFacts),
	"Use only information present in the source. No commentary.",
	fmt.Sprintf("If the source is too thin to support a post, reply with exactly %s and nothing else.", generate.InsufficientSourceSentinel),
}, " ")

func factsPrompt(source string) string {
	return "Extract the key facts from this source:\n\n" + source
}

// draftSystem renders the knob settings into writing instructions.
// Axes left on "auto" are delegated to the model.
func draftSystem(req generate.DraftRequest) string {
	var b strings.Builder
	b.WriteString("You write concise LinkedIn posts. Start with a strong hook, 2-4 short paragraphs, each under 60 words.")
	if req.Persona != "" && req.Persona != "auto" {
		fmt.Fprintf(&b, " Write as persona %q.", generate.OptionLabel(generate.AxisPersona, req.Persona))
	}
	if req.Tone != "" && req.Tone != "auto" {
		fmt.Fprintf(&b, " Tone: %s.", generate.OptionLabel(generate.AxisTone, req.Tone))
	}
	if req.HookType != "" && req.HookType != "auto" {
		fmt.Fprintf(&b, " Hook style: %s.", generate.OptionLabel(generate.AxisHookType, req.HookType))
	}
	if req.Goal != "" && req.Goal != "auto" {
		fmt.Fprintf(&b, " Optimize for: %s.", generate.OptionLabel(generate.AxisGoal, req.Goal))
	}
	if req.Length != "" && req.Length != "auto" {
		fmt.Fprintf(&b, " Length: %s.", req.Length)
	}
	if req.Ending != "" && req.Ending != "auto" {
		fmt.Fprintf(&b, " End with a %s style close.", generate.OptionLabel(generate.AxisEnding, req.Ending))
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, " Weave in these keywords where natural: %s.", strings.Join(req.Keywords, ", "))
	}
	fmt.Fprintf(&b, " If the material cannot support a credible post, reply with exactly %s.",
		generate.InsufficientSourceSentinel)
	return b.String()
}

func draftFromFactsPrompt(facts []string) string {
	var b strings.Builder
	b.WriteString("Write one LinkedIn post strictly from these facts. Do not invent details:\n\n")
	for _, f := range facts {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteByte('\n')
	}
	return b.String()
}

func draftFromSourcePrompt(source string) string {
	return "Write one LinkedIn post grounded in this source material:\n\n" + source
}

// parseFacts splits a fact-extraction response into clean statements.
// The sentinel (alone or anywhere in the response) yields no facts, so
// the orchestrator falls through to its single-shot path.
func parseFacts(response string) []string {
	if strings.Contains(response, generate.InsufficientSourceSentinel) {
		return nil
	}
	var facts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line == "" {
			continue
		}
		facts = append(facts, line)
		if len(facts) == maxFacts {
			break
		}
	}
	return facts
}

// stubDraft is the deterministic output used when no API key is
// configured, keeping the whole pipeline testable without credentials.
func stubDraft(source string, req generate.DraftRequest) string {
	base := source
	if idx := strings.IndexByte(base, '\n'); idx >= 0 {
		base = base[:idx]
	}
	if len(base) > 140 {
		base = base[:140]
	}
	persona := req.Persona
	if persona == "" {
		persona = "auto"
	}
	tone := req.Tone
	if tone == "" {
		tone = "auto"
	}
	return fmt.Sprintf("[%s/%s] %s #draft", persona, tone, strings.TrimSpace(base))
}
