package gateway

import (
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

const (
	fallbackEchoLimit = 280

	// FallbackMarker prefixes every locally composed reply so downstream
	// heuristics and tests can recognize a degraded completion by text alone.
	FallbackMarker = "[concierge offline]"
)

// fallbackComposer builds a deterministic reply from the business summary and
// the latest user turn. No randomness: the same inputs always produce the
// same text.
type fallbackComposer struct {
	intro string
}

func newFallbackComposer(businessSummary string) *fallbackComposer {
	return &fallbackComposer{intro: firstSentence(businessSummary)}
}

func (f *fallbackComposer) compose(history []contractx.ConversationTurn) string {
	var b strings.Builder
	b.WriteString(FallbackMarker)
	b.WriteString(" ")
	if f.intro != "" {
		b.WriteString(f.intro)
		b.WriteString(" ")
	}
	b.WriteString("I could not reach our assistant right now.")

	if last := lastUserText(history); last != "" {
		b.WriteString(" Noting your message: ")
		b.WriteString(truncate(last, fallbackEchoLimit))
	}
	b.WriteString(" A member of our team can follow up if you share your contact details.")
	return b.String()
}

func lastUserText(history []contractx.ConversationTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == contractx.RoleUser {
			return strings.TrimSpace(history[i].Text)
		}
	}
	return ""
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?\n"); idx > 0 {
		return strings.TrimSpace(text[:idx+1])
	}
	return text
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "…"
}
