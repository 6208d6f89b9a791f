package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	personasx "github.com/neuraestate/propmatch/agent/personas"
	statex "github.com/neuraestate/propmatch/agent/state"
)

type scriptedCompleter struct {
	text     string
	fallback bool
}

func (s *scriptedCompleter) Complete(ctx context.Context, systemPrompt string, history []contractx.ConversationTurn, maxTokens int) contractx.Completion {
	return contractx.Completion{Text: s.text, UsedFallback: s.fallback}
}

type scriptedSearcher struct {
	result contractx.SearchResult
	err    error
	calls  int
}

func (s *scriptedSearcher) Search(ctx context.Context, f contractx.Filter) (contractx.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return contractx.SearchResult{}, s.err
	}
	return s.result, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []contractx.Event
	err    error
}

func (r *recordingSink) Append(e contractx.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) all() []contractx.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]contractx.Event(nil), r.events...)
}

func newTestOrchestrator(t *testing.T, searcher *scriptedSearcher, sink *recordingSink) *Orchestrator {
	t.Helper()

	runtime, err := personasx.NewRuntime(
		&scriptedCompleter{text: "Noted your preferences."},
		&scriptedCompleter{text: "Here is what I found for you."},
		searcher,
		512,
	)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}

	orch, err := New(statex.NewManager(nil), runtime, sink, "NeuraEstate is a Dubai property concierge.")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return orch
}

func TestHandleTurnRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(t, &scriptedSearcher{}, &recordingSink{})

	if _, err := orch.HandleTurn(context.Background(), "s-1", "   "); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty message error = %v, want ErrValidation", err)
	}
	if _, err := orch.HandleTurn(context.Background(), "", "hello"); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("empty session error = %v, want ErrValidation", err)
	}
}

func TestHandleTurnSkipsScoutWithoutSearchableRequirements(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{}
	orch := newTestOrchestrator(t, searcher, &recordingSink{})

	reply, err := orch.HandleTurn(context.Background(), "s-1", "hello, tell me about buying in Dubai")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply == "" {
		t.Fatal("HandleTurn() returned an empty reply")
	}
	if searcher.calls != 0 {
		t.Fatalf("searcher called %d times for an unsearchable turn, want 0", searcher.calls)
	}
}

func TestHandleTurnRunsScoutWhenSearchable(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{result: contractx.SearchResult{Candidates: []contractx.ListingCandidate{
		{ID: "l1", Address: "Dubai Marina", PriceAED: 1_900_000, Bedrooms: 2},
	}}}
	orch := newTestOrchestrator(t, searcher, &recordingSink{})

	reply, err := orch.HandleTurn(context.Background(), "s-1", "2-bedroom in Dubai Marina under 2M AED")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if reply == "" {
		t.Fatal("HandleTurn() returned an empty reply")
	}
	if searcher.calls != 1 {
		t.Fatalf("searcher called %d times, want 1", searcher.calls)
	}
}

func TestHandleTurnAlwaysRepliesWhenEverythingFails(t *testing.T) {
	t.Parallel()

	runtime, err := personasx.NewRuntime(
		&scriptedCompleter{fallback: true},
		&scriptedCompleter{fallback: true},
		&scriptedSearcher{err: contractx.ErrUpstreamUnavailable},
		512,
	)
	if err != nil {
		t.Fatalf("NewRuntime() error = %v", err)
	}
	sink := &recordingSink{err: errors.New("disk full")}
	orch, err := New(statex.NewManager(nil), runtime, sink, "summary")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	reply, err := orch.HandleTurn(context.Background(), "s-1", "2-bedroom in Dubai Marina under 2M AED")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v, want nil even when all collaborators fail", err)
	}
	if strings.TrimSpace(reply) == "" {
		t.Fatal("HandleTurn() returned an empty reply under total failure")
	}
}

func TestHandleTurnFiresCompletenessLeadOnce(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	orch := newTestOrchestrator(t, &scriptedSearcher{}, sink)

	if _, err := orch.HandleTurn(context.Background(), "s-1", "2-bedroom in Dubai Marina under 2M AED"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if _, err := orch.HandleTurn(context.Background(), "s-1", "actually make that 3 bedrooms"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	leads := 0
	for _, e := range sink.all() {
		if e.Kind == contractx.EventLead {
			leads++
		}
	}
	if leads != 1 {
		t.Fatalf("completeness produced %d leads across turns, want 1", leads)
	}
}

func TestHandleTurnPersistsRequirementsAcrossTurns(t *testing.T) {
	t.Parallel()

	searcher := &scriptedSearcher{}
	orch := newTestOrchestrator(t, searcher, &recordingSink{})

	if _, err := orch.HandleTurn(context.Background(), "s-1", "I like JLT"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	// Second turn adds nothing searchable by itself; the session must still
	// carry the location forward so the scout runs.
	before := searcher.calls
	if _, err := orch.HandleTurn(context.Background(), "s-1", "what do you have?"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if searcher.calls <= before {
		t.Fatal("scout did not run on remembered requirements")
	}
}

func TestExportReturnsTranscript(t *testing.T) {
	t.Parallel()

	orch := newTestOrchestrator(t, &scriptedSearcher{}, &recordingSink{})

	if _, err := orch.HandleTurn(context.Background(), "s-1", "hello there"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	turns, err := orch.Export(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("Export() returned %d turns, want user + assistant", len(turns))
	}
	if turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Fatalf("roles = [%s, %s], want [user, assistant]", turns[0].Role, turns[1].Role)
	}
}
