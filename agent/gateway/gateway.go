// Package gateway is the single LLM call surface. Callers always receive a
// reply: transport, auth, or configuration failures degrade to a
// deterministic local completion flagged with UsedFallback.
package gateway

import (
	"context"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

const defaultCallTimeout = 30 * time.Second

type Gateway struct {
	model    einomodel.BaseChatModel
	fallback *fallbackComposer
	timeout  time.Duration
}

var _ contractx.Completer = (*Gateway)(nil)

// New builds a gateway around an optional chat model. A nil model (no API key
// configured) yields a gateway that is permanently on its local fallback.
func New(model einomodel.BaseChatModel, businessSummary string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Gateway{
		model:    model,
		fallback: newFallbackComposer(businessSummary),
		timeout:  timeout,
	}
}

func (g *Gateway) Complete(
	ctx context.Context,
	systemPrompt string,
	history []contractx.ConversationTurn,
	maxTokens int,
) contractx.Completion {
	if g.model == nil {
		return contractx.Completion{Text: g.fallback.compose(history), UsedFallback: true}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	opts := []einomodel.Option{}
	if maxTokens > 0 {
		opts = append(opts, einomodel.WithMaxTokens(maxTokens))
	}

	msg, err := g.model.Generate(callCtx, toMessages(systemPrompt, history), opts...)
	if err != nil {
		log.Warn().Err(err).Msg("model call failed, using local fallback")
		return contractx.Completion{Text: g.fallback.compose(history), UsedFallback: true}
	}

	text := ""
	if msg != nil {
		text = strings.TrimSpace(msg.Content)
	}
	if text == "" {
		log.Warn().Msg("model returned empty content, using local fallback")
		return contractx.Completion{Text: g.fallback.compose(history), UsedFallback: true}
	}

	return contractx.Completion{Text: text}
}

func toMessages(systemPrompt string, history []contractx.ConversationTurn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	for _, turn := range history {
		switch turn.Role {
		case contractx.RoleUser:
			msgs = append(msgs, schema.UserMessage(turn.Text))
		case contractx.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(turn.Text, nil))
		case contractx.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(turn.Text))
		}
	}
	return msgs
}
