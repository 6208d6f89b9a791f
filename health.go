package main

import (
	"context"
	"time"

	openaisdk "github.com/openai/openai-go"

	bizctxx "github.com/neuraestate/propmatch/agent/bizctx"
	listingx "github.com/neuraestate/propmatch/agent/listing"
	mapsx "github.com/neuraestate/propmatch/agent/maps"
)

// healthChecker reports per-upstream readiness for the /healthz endpoint.
// Checks never fail the probe; degraded upstreams surface as their status
// string.
type healthChecker struct {
	biz     bizctxx.Context
	llm     *openaisdk.Client
	listing *listingx.Client
	maps    *mapsx.Client
}

func (h *healthChecker) Check(ctx context.Context) map[string]string {
	checks := map[string]string{
		"business_context": statusFor(!h.biz.Degraded, "using built-in summary"),
		"listing":          statusFor(h.listing != nil && h.listing.Enabled(), "not configured"),
		"maps":             statusFor(h.maps != nil && h.maps.Enabled(), "not configured"),
	}
	checks["llm"] = h.checkLLM(ctx)
	return checks
}

// checkLLM probes the model endpoint with a cheap list call.
func (h *healthChecker) checkLLM(ctx context.Context) string {
	if h.llm == nil {
		return "not configured"
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := h.llm.Models.List(probeCtx); err != nil {
		return "unreachable: " + err.Error()
	}
	return "ok"
}

func statusFor(ok bool, degradedMsg string) string {
	if ok {
		return "ok"
	}
	return degradedMsg
}
