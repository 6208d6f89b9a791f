package contract

import "context"

// Completer is the LLM gateway capability. It never fails: degraded calls
// return a Completion with UsedFallback set.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []ConversationTurn, maxTokens int) Completion
}

// Searcher queries the external listing provider. The only error it returns
// is ErrInvalidFilter; provider failures surface as a degraded empty result.
type Searcher interface {
	Search(ctx context.Context, f Filter) (SearchResult, error)
}

// Enricher attaches map details to a candidate, returning it unchanged (with
// MapUnavailable set) on any failure or when credentials are absent.
type Enricher interface {
	Enrich(ctx context.Context, c ListingCandidate) ListingCandidate
	Enabled() bool
}

// EventSink records lead/feedback events. Append failures are reported but
// must not abort the conversation turn.
type EventSink interface {
	Append(e Event) error
}
