// Package personas implements the three conversation roles as variants of a
// single capability: Respond(ctx, kind, input) -> AgentResult. Personas are
// pure over their inputs and never touch session state; the orchestrator
// applies result merges.
package personas

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	promptx "github.com/neuraestate/propmatch/agent/prompt"
)

// DefaultShortlistSize caps the scout's ranked output.
const DefaultShortlistSize = 5

// Input is the read-only view a persona responds to.
type Input struct {
	Context      string
	Requirements contractx.Requirements
	History      []contractx.ConversationTurn

	// Search carries the scout's outcome into the concierge; nil when the
	// scout stage was skipped this turn.
	Search *contractx.SearchResult
}

// Runtime binds the persona variants to their collaborators.
type Runtime struct {
	specialist contractx.Completer
	concierge  contractx.Completer
	searcher   contractx.Searcher
	prompts    promptx.PromptSet
	maxTokens  int
	shortlist  int
}

func NewRuntime(
	specialist contractx.Completer,
	concierge contractx.Completer,
	searcher contractx.Searcher,
	maxTokens int,
) (*Runtime, error) {
	if specialist == nil || concierge == nil {
		return nil, fmt.Errorf("%w: persona completers are required", contractx.ErrValidation)
	}
	if searcher == nil {
		return nil, fmt.Errorf("%w: listing searcher is required", contractx.ErrValidation)
	}
	return &Runtime{
		specialist: specialist,
		concierge:  concierge,
		searcher:   searcher,
		prompts:    promptx.LoadPromptSet(),
		maxTokens:  maxTokens,
		shortlist:  DefaultShortlistSize,
	}, nil
}

// Respond dispatches to the persona variant selected by kind.
func (r *Runtime) Respond(ctx context.Context, kind contractx.PersonaKind, in Input) contractx.AgentResult {
	switch kind {
	case contractx.PersonaSpecialist:
		return r.respondSpecialist(ctx, in)
	case contractx.PersonaScout:
		return r.respondScout(ctx, in)
	case contractx.PersonaConcierge:
		return r.respondConcierge(ctx, in)
	default:
		return contractx.AgentResult{
			Persona:      kind,
			Text:         "",
			UsedFallback: true,
		}
	}
}

// summarizeRequirements renders the known preference fields for prompts and
// deterministic fallbacks. Unknown fields are listed as such so the model
// asks rather than guesses.
func summarizeRequirements(r contractx.Requirements) string {
	line := func(label, val string) string {
		if val == "" {
			val = "unknown"
		}
		return fmt.Sprintf("- %s: %s", label, val)
	}

	location := strings.Join(r.Locations, ", ")
	budget := ""
	switch {
	case r.BudgetMinAED > 0 && r.BudgetMaxAED > 0:
		budget = fmt.Sprintf("AED %.0f – %.0f", r.BudgetMinAED, r.BudgetMaxAED)
	case r.BudgetMaxAED > 0:
		budget = fmt.Sprintf("up to AED %.0f", r.BudgetMaxAED)
	case r.BudgetMinAED > 0:
		budget = fmt.Sprintf("from AED %.0f", r.BudgetMinAED)
	}
	bedrooms := ""
	if r.Bedrooms > 0 {
		bedrooms = fmt.Sprintf("%d", r.Bedrooms)
	}

	return strings.Join([]string{
		line("location", location),
		line("budget", budget),
		line("bedrooms", bedrooms),
		line("property type", r.PropertyType),
	}, "\n")
}
