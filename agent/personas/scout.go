package personas

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// respondScout turns the gathered requirements into a listing search and
// ranks the results into a shortlist. The scout is fully deterministic; its
// text is an internal handoff note, never shown to the client directly.
func (r *Runtime) respondScout(ctx context.Context, in Input) contractx.AgentResult {
	filter := buildFilter(in.Requirements)

	result, err := r.searcher.Search(ctx, filter)
	if err != nil {
		if errors.Is(err, contractx.ErrInvalidFilter) {
			// Should not happen: the orchestrator only routes here when the
			// requirements are searchable. Treat as a degraded feed.
			log.Warn().Err(err).Msg("scout: search filter rejected")
		}
		return contractx.AgentResult{
			Persona:  contractx.PersonaScout,
			Text:     "listing feed unavailable",
			Degraded: true,
		}
	}

	ranked := rankCandidates(result.Candidates, filter, in.Requirements)
	if len(ranked) > r.shortlist {
		ranked = ranked[:r.shortlist]
	}

	return contractx.AgentResult{
		Persona:  contractx.PersonaScout,
		Text:     scoutNote(ranked, result.Degraded),
		Listings: ranked,
		Degraded: result.Degraded,
	}
}

// buildFilter maps requirement fields onto the listing filter. Only fields
// with a concrete value are forwarded.
func buildFilter(r contractx.Requirements) contractx.Filter {
	f := contractx.Filter{Page: 1}
	if len(r.Locations) > 0 {
		f.Location = strings.Join(r.Locations, ", ")
	}
	if r.BudgetMinAED > 0 {
		f.MinPriceAED = r.BudgetMinAED
	}
	if r.BudgetMaxAED > 0 {
		f.MaxPriceAED = r.BudgetMaxAED
	}
	if r.Bedrooms > 0 {
		f.Bedrooms = r.Bedrooms
	}
	if r.PropertyType != "" {
		f.PropertyType = r.PropertyType
	}
	return f
}

func scoutNote(ranked []contractx.ListingCandidate, degraded bool) string {
	if degraded {
		return "listing feed degraded, no candidates this turn"
	}
	return fmt.Sprintf("shortlisted %d candidates", len(ranked))
}
