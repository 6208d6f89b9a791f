package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	bizctxx "github.com/neuraestate/propmatch/agent/bizctx"
	contractx "github.com/neuraestate/propmatch/agent/contract"
	eventlogx "github.com/neuraestate/propmatch/agent/eventlog"
	gatewayx "github.com/neuraestate/propmatch/agent/gateway"
	listingx "github.com/neuraestate/propmatch/agent/listing"
	llmx "github.com/neuraestate/propmatch/agent/llm"
	mapsx "github.com/neuraestate/propmatch/agent/maps"
	orchestratorx "github.com/neuraestate/propmatch/agent/orchestrator"
	personasx "github.com/neuraestate/propmatch/agent/personas"
	statex "github.com/neuraestate/propmatch/agent/state"
	configx "github.com/neuraestate/propmatch/pkg/config"
	_ "github.com/neuraestate/propmatch/pkg/logger/autoload"
	openaix "github.com/neuraestate/propmatch/pkg/openai"
	serverx "github.com/neuraestate/propmatch/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bizCfg := configx.MustNew[bizctxx.Config]("BUSINESS")
	biz := bizctxx.Load(*bizCfg)

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	specialist := buildCompleter(ctx, llmCfg.OpenAIFor(contractx.PersonaSpecialist), *llmCfg, biz.Summary)
	concierge := buildCompleter(ctx, llmCfg.OpenAIFor(contractx.PersonaConcierge), *llmCfg, biz.Summary)

	mapsCfg := configx.MustNew[mapsx.Config]("MAPS")
	enricher, err := mapsx.New(*mapsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid maps configuration")
	}

	listingCfg := configx.MustNew[listingx.Config]("LISTING")
	searcher := listingx.New(*listingCfg, enricher)

	runtime, err := personasx.NewRuntime(specialist, concierge, searcher, llmCfg.MaxCompletionToken)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build persona runtime")
	}

	eventCfg := configx.MustNew[eventlogx.Config]("EVENTLOG")
	events, err := eventlogx.New(*eventCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event logs")
	}

	sessions := statex.NewManager(buildStore())

	orch, err := orchestratorx.New(sessions, runtime, events, biz.Summary)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build orchestrator")
	}

	health := &healthChecker{
		biz:     biz,
		llm:     openaix.NewClient(llmCfg.OpenAIFor(contractx.PersonaConcierge)),
		listing: searcher,
		maps:    enricher,
	}

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := serverx.New(*serverCfg, orch, events, health)

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("shutdown complete")
}

// buildCompleter wires one persona's gateway. Without an API key the gateway
// runs permanently on its deterministic fallback.
func buildCompleter(ctx context.Context, modelCfg openaix.Config, llmCfg llmx.Config, summary string) contractx.Completer {
	if !llmCfg.Enabled() {
		log.Warn().Msg("no LLM API key configured, replies use the deterministic fallback")
		return gatewayx.New(nil, summary, llmCfg.Timeout)
	}

	chatModel, err := modelCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("chat model init failed, replies use the deterministic fallback")
		return gatewayx.New(nil, summary, llmCfg.Timeout)
	}
	return gatewayx.New(chatModel, summary, llmCfg.Timeout)
}

// buildStore prefers the Redis REST store when configured and falls back to
// process memory otherwise.
func buildStore() statex.Store {
	redisCfg := configx.MustNew[statex.RedisRESTConfig]("REDIS")
	if !redisCfg.Enabled() {
		log.Info().Msg("no redis configured, sessions are in-memory only")
		return statex.NewMemoryStore()
	}

	store, err := statex.NewRedisRESTStore(*redisCfg)
	if err != nil {
		log.Warn().Err(err).Msg("redis store init failed, sessions are in-memory only")
		return statex.NewMemoryStore()
	}
	return store
}
