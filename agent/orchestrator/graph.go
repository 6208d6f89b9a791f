package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	personasx "github.com/neuraestate/propmatch/agent/personas"
)

// GraphInput is the pure snapshot one turn runs over. The session itself is
// never threaded through the graph; the service applies the output back under
// the session lock.
type GraphInput struct {
	Context      string
	Requirements contractx.Requirements
	History      []contractx.ConversationTurn
}

// GraphOutput is what the turn produced: the client-facing reply plus the
// state the service folds back into the session.
type GraphOutput struct {
	Reply        string
	Delta        contractx.Requirements
	Listings     []contractx.ListingCandidate
	Degraded     bool
	UsedFallback bool
}

type graphState struct {
	in GraphInput

	// merged is the requirement view after this turn's delta, used for
	// routing and prompting. The session merge happens outside the graph.
	merged contractx.Requirements
	delta  contractx.Requirements

	specialistNote string
	search         *contractx.SearchResult
	out            GraphOutput
}

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*graphState, error) {
			if len(in.History) == 0 {
				return nil, fmt.Errorf("%w: turn history is empty", contractx.ErrValidation)
			}
			last := in.History[len(in.History)-1]
			if last.Role != contractx.RoleUser || strings.TrimSpace(last.Text) == "" {
				return nil, fmt.Errorf("%w: last turn must be a non-empty user message", contractx.ErrValidation)
			}
			return &graphState{in: in, merged: in.Requirements}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("gather_preferences",
		compose.InvokableLambda(func(ctx context.Context, st *graphState) (*graphState, error) {
			res := o.runtime.Respond(ctx, contractx.PersonaSpecialist, personasx.Input{
				Context:      st.in.Context,
				Requirements: st.in.Requirements,
				History:      st.in.History,
			})
			if res.Requirements != nil {
				st.delta = *res.Requirements
				st.merged.Merge(st.delta)
			}
			st.specialistNote = res.Text
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node gather_preferences: %w", err)
	}

	if err := graph.AddLambdaNode("search_listings",
		compose.InvokableLambda(func(ctx context.Context, st *graphState) (*graphState, error) {
			res := o.runtime.Respond(ctx, contractx.PersonaScout, personasx.Input{
				Context:      st.in.Context,
				Requirements: st.merged,
				History:      st.in.History,
			})
			st.search = &contractx.SearchResult{Candidates: res.Listings, Degraded: res.Degraded}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node search_listings: %w", err)
	}

	if err := graph.AddLambdaNode("compose_reply",
		compose.InvokableLambda(func(ctx context.Context, st *graphState) (*graphState, error) {
			history := st.in.History
			if st.specialistNote != "" {
				history = append(append([]contractx.ConversationTurn(nil), history...), contractx.ConversationTurn{
					Role: contractx.RoleSystem,
					Text: "Preference notes: " + st.specialistNote,
				})
			}
			res := o.runtime.Respond(ctx, contractx.PersonaConcierge, personasx.Input{
				Context:      st.in.Context,
				Requirements: st.merged,
				History:      history,
				Search:       st.search,
			})
			st.out = GraphOutput{
				Reply:        res.Text,
				Delta:        st.delta,
				Listings:     res.Listings,
				Degraded:     res.Degraded,
				UsedFallback: res.UsedFallback,
			}
			return st, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node compose_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, st *graphState) (GraphOutput, error) {
			if strings.TrimSpace(st.out.Reply) == "" {
				st.out.Reply = personasx.DegradedFeedNotice
				st.out.UsedFallback = true
			}
			return st.out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	// The scout only runs when there is enough to search on; otherwise the
	// concierge keeps gathering preferences.
	branch := compose.NewGraphBranch(
		func(ctx context.Context, st *graphState) (string, error) {
			if st == nil {
				return "", fmt.Errorf("%w: turn graph state is nil", contractx.ErrValidation)
			}
			if st.merged.Searchable() {
				return "search_listings", nil
			}
			return "compose_reply", nil
		},
		map[string]bool{
			"search_listings": true,
			"compose_reply":   true,
		},
	)
	if err := graph.AddBranch("gather_preferences", branch); err != nil {
		return nil, fmt.Errorf("add scout branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "gather_preferences"},
		{"search_listings", "compose_reply"},
		{"compose_reply", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
