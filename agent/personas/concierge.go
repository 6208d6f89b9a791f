package personas

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// DegradedFeedNotice is the guard message used when the listing feed could
// not be reached. The concierge must never claim there are zero matching
// properties when the feed is merely down.
const DegradedFeedNotice = "Our listing feed is reconnecting at the moment, so I can't show live matches right now. " +
	"Your preferences are saved and I'll line up matching properties as soon as it's back. " +
	"If you leave your name and a phone number or email, I'll follow up personally."

// respondConcierge composes the final client-facing reply. The shortlist is
// rendered into the prompt so the model only phrases, never invents,
// properties. On model fallback the reply is composed deterministically from
// the same shortlist.
func (r *Runtime) respondConcierge(ctx context.Context, in Input) contractx.AgentResult {
	var listings []contractx.ListingCandidate
	degraded := false
	if in.Search != nil {
		listings = in.Search.Candidates
		degraded = in.Search.Degraded
	}

	system := strings.Join([]string{
		r.prompts.Concierge,
		"",
		"Business context:",
		in.Context,
		"",
		"Client preferences:",
		summarizeRequirements(in.Requirements),
		"",
		shortlistSection(listings, degraded),
	}, "\n")

	completion := r.concierge.Complete(ctx, system, in.History, r.maxTokens)
	text := completion.Text
	if completion.UsedFallback || strings.TrimSpace(text) == "" {
		text = conciergeFallback(listings, degraded)
	}

	return contractx.AgentResult{
		Persona:      contractx.PersonaConcierge,
		Text:         text,
		Listings:     listings,
		Degraded:     degraded,
		UsedFallback: completion.UsedFallback,
	}
}

func shortlistSection(listings []contractx.ListingCandidate, degraded bool) string {
	if degraded {
		return "Shortlist: unavailable, the listing feed is reconnecting. Do not claim zero matches exist."
	}
	if len(listings) == 0 {
		return "Shortlist: no live search was run this turn. Keep gathering preferences."
	}
	var b strings.Builder
	b.WriteString("Shortlist:\n")
	for i, c := range listings {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, formatCandidate(c)))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// conciergeFallback is the deterministic reply used when the model is
// unreachable. It still carries the shortlist or the degraded guard message.
func conciergeFallback(listings []contractx.ListingCandidate, degraded bool) string {
	if degraded {
		return DegradedFeedNotice
	}
	if len(listings) == 0 {
		return "Thanks for the details so far. Tell me a little more about the area, budget, and size you have in mind " +
			"and I'll pull up matching properties for you."
	}

	var b strings.Builder
	b.WriteString("Here are the properties that best match your preferences:\n")
	for i, c := range listings {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, formatCandidate(c)))
	}
	b.WriteString("\nIf any of these catch your eye, leave your name and a phone number or email and I'll arrange a viewing.")
	return b.String()
}

func formatCandidate(c contractx.ListingCandidate) string {
	var parts []string
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	if c.Address != "" {
		parts = append(parts, c.Address)
	}
	if c.Bedrooms > 0 {
		parts = append(parts, fmt.Sprintf("%d BR", c.Bedrooms))
	}
	if c.SizeSqft > 0 {
		parts = append(parts, fmt.Sprintf("%.0f sqft", c.SizeSqft))
	}
	parts = append(parts, fmt.Sprintf("AED %s", formatPrice(c.PriceAED)))
	if c.TruChecked {
		parts = append(parts, "TruChecked")
	}
	line := strings.Join(parts, " | ")

	if c.Map != nil && c.Map.Place != "" {
		line += fmt.Sprintf(" (near %s)", c.Map.Place)
	}
	if c.URL != "" {
		line += " " + c.URL
	}
	return line
}

// formatPrice renders an AED amount with thousands separators.
func formatPrice(v float64) string {
	n := int64(v)
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	var groups []string
	for n > 0 {
		if n >= 1000 {
			groups = append([]string{fmt.Sprintf("%03d", n%1000)}, groups...)
		} else {
			groups = append([]string{fmt.Sprintf("%d", n%1000)}, groups...)
		}
		n /= 1000
	}
	return strings.Join(groups, ",")
}
