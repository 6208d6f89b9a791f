package personas

import (
	"context"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// respondSpecialist extracts preference fields from the latest user turn and
// acknowledges what is known while asking for what is missing. Extraction is
// deterministic; only the acknowledgement text goes through the model.
func (r *Runtime) respondSpecialist(ctx context.Context, in Input) contractx.AgentResult {
	delta := extractRequirements(lastUserText(in.History))

	merged := in.Requirements
	merged.Merge(delta)

	system := strings.Join([]string{
		r.prompts.Specialist,
		"",
		"Business context:",
		in.Context,
		"",
		"Preferences gathered so far:",
		summarizeRequirements(merged),
	}, "\n")

	completion := r.specialist.Complete(ctx, system, in.History, r.maxTokens)
	text := completion.Text
	if completion.UsedFallback {
		text = specialistSummary(merged)
	}

	return contractx.AgentResult{
		Persona:      contractx.PersonaSpecialist,
		Text:         text,
		Requirements: &delta,
		UsedFallback: completion.UsedFallback,
	}
}

// specialistSummary is the deterministic stand-in when the model is
// unreachable: restate what is known and ask for the most important missing
// field.
func specialistSummary(r contractx.Requirements) string {
	var b strings.Builder
	b.WriteString("Thanks for sharing. Here is what I have so far:\n")
	b.WriteString(summarizeRequirements(r))

	switch {
	case !r.HasLocation():
		b.WriteString("\n\nWhich area of Dubai are you considering?")
	case !r.HasBudget():
		b.WriteString("\n\nWhat budget range should I work with, in AED?")
	case r.Bedrooms == 0:
		b.WriteString("\n\nHow many bedrooms do you need?")
	default:
		b.WriteString("\n\nShall I pull up matching properties?")
	}
	return b.String()
}

func lastUserText(history []contractx.ConversationTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == contractx.RoleUser {
			return history[i].Text
		}
	}
	return ""
}
