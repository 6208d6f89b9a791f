// Package orchestrator runs one conversation turn end to end: session turn
// bookkeeping, the persona pipeline, requirement merging, and trigger
// evaluation. A turn always yields a non-empty reply; only input validation
// errors surface to the caller.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
	personasx "github.com/neuraestate/propmatch/agent/personas"
	statex "github.com/neuraestate/propmatch/agent/state"
	triggerx "github.com/neuraestate/propmatch/agent/trigger"
)

type Orchestrator struct {
	sessions *statex.Manager
	runtime  *personasx.Runtime
	sink     contractx.EventSink

	businessContext string

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	now func() time.Time
}

func New(
	sessions *statex.Manager,
	runtime *personasx.Runtime,
	sink contractx.EventSink,
	businessContext string,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, fmt.Errorf("%w: session manager is required", contractx.ErrConfiguration)
	}
	if runtime == nil {
		return nil, fmt.Errorf("%w: persona runtime is required", contractx.ErrConfiguration)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: event sink is required", contractx.ErrConfiguration)
	}

	o := &Orchestrator{
		sessions:        sessions,
		runtime:         runtime,
		sink:            sink,
		businessContext: businessContext,
		now:             time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message in a session and returns the reply.
// Downstream failures (model, listing feed, event log) degrade the reply but
// never fail the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: message text is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}

	var reply string
	err := o.sessions.Do(ctx, sessionID, func(sess *statex.Session) error {
		sess.AppendTurn(contractx.RoleUser, text, o.now())

		out, err := o.graphRunner.Invoke(ctx, GraphInput{
			Context:      o.businessContext,
			Requirements: sess.Requirements,
			History:      sess.History(),
		})
		if err != nil {
			log.Error().Str("session_id", sessionID).Err(err).Msg("orchestrator: turn graph failed")
			out = GraphOutput{
				Reply:        personasx.DegradedFeedNotice,
				Degraded:     true,
				UsedFallback: true,
			}
		}

		firstComplete := sess.MergeRequirements(out.Delta, o.now())
		reply = out.Reply
		sess.AppendTurn(contractx.RoleAssistant, reply, o.now())

		o.fireTriggers(triggerx.Turn{
			UserText:      text,
			Reply:         reply,
			Requirements:  sess.Requirements,
			FirstComplete: firstComplete,
			UsedFallback:  out.UsedFallback,
		}, sessionID)
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// Export returns the session transcript for download.
func (o *Orchestrator) Export(ctx context.Context, sessionID string) ([]statex.ExportedTurn, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", contractx.ErrValidation)
	}
	return o.sessions.Snapshot(ctx, sessionID)
}

// fireTriggers evaluates heuristics and appends the resulting events. Log
// failures are reported but never bubble into the turn.
func (o *Orchestrator) fireTriggers(t triggerx.Turn, sessionID string) {
	for _, e := range triggerx.Evaluate(t, o.now()) {
		if err := o.sink.Append(e); err != nil {
			log.Error().
				Str("session_id", sessionID).
				Str("event_kind", string(e.Kind)).
				Err(err).
				Msg("orchestrator: event append failed")
		}
	}
}
