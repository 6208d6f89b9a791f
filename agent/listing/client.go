// Package listing queries the Bayut-style property search provider and
// normalizes its payloads into listing candidates. Provider failures are
// absorbed into a degraded empty result; only malformed filters error.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

const (
	searchPath           = "/properties_search"
	maxResponseSizeBytes = 4 << 20
)

// allowedFilters mirrors the provider's request schema; unknown keys are
// silently dropped rather than forwarded.
var allowedFilters = map[string]struct{}{
	"location":      {},
	"price_min":     {},
	"price_max":     {},
	"rooms":         {},
	"property_type": {},
	"purpose":       {},
}

type Config struct {
	BaseURL      string        `envconfig:"BASE_URL" split_words:"true" default:"https://bayut-api1.p.rapidapi.com"`
	APIKey       string        `envconfig:"API_KEY" split_words:"true"`
	APIHost      string        `envconfig:"API_HOST" split_words:"true" default:"bayut-api1.p.rapidapi.com"`
	Timeout      time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
	AuditLogPath string        `envconfig:"AUDIT_LOG_PATH" split_words:"true" default:"logs/listing_raw.jsonl"`
	Language     string        `envconfig:"LANGUAGE" split_words:"true" default:"en"`
}

// Client talks to the listing provider and runs per-candidate map enrichment.
type Client struct {
	cfg        Config
	httpClient *http.Client
	enricher   contractx.Enricher
	audit      *auditLog
}

var _ contractx.Searcher = (*Client)(nil)

// New builds the search client. A missing API key is not an error: the client
// stays constructed but every search degrades, so the rest of the app keeps
// working without the provider.
func New(cfg Config, enricher contractx.Enricher) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn().Msg("listing provider api key not configured, search will run degraded")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		enricher:   enricher,
		audit:      newAuditLog(cfg.AuditLogPath),
	}
}

// Enabled reports whether the provider credentials are configured.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Search validates the filter, calls the provider, and returns normalized
// candidates. "No results" and "provider unavailable" both come back as an
// empty candidate list; Degraded tells them apart.
func (c *Client) Search(ctx context.Context, f contractx.Filter) (contractx.SearchResult, error) {
	if err := validateFilter(f); err != nil {
		return contractx.SearchResult{}, err
	}
	if !c.Enabled() {
		return contractx.SearchResult{Degraded: true}, nil
	}

	body := requestBody(f)
	payload, err := c.post(ctx, searchPath, f, body)
	if err != nil {
		log.Warn().Err(err).Msg("listing search degraded")
		return contractx.SearchResult{Degraded: true}, nil
	}

	candidates := normalizeCards(payload)
	c.audit.record(searchPath, body, len(candidates))

	return contractx.SearchResult{
		Candidates: c.enrichAll(ctx, candidates),
	}, nil
}

func validateFilter(f contractx.Filter) error {
	if strings.TrimSpace(f.Location) == "" && f.MinPriceAED <= 0 && f.MaxPriceAED <= 0 {
		return fmt.Errorf("%w: location or a budget bound is required", contractx.ErrInvalidFilter)
	}
	if f.MinPriceAED < 0 || f.MaxPriceAED < 0 {
		return fmt.Errorf("%w: price bounds must be positive", contractx.ErrInvalidFilter)
	}
	if f.MinPriceAED > 0 && f.MaxPriceAED > 0 && f.MinPriceAED > f.MaxPriceAED {
		return fmt.Errorf("%w: price_min exceeds price_max", contractx.ErrInvalidFilter)
	}
	if f.Bedrooms < 0 {
		return fmt.Errorf("%w: bedrooms must be positive", contractx.ErrInvalidFilter)
	}
	return nil
}

func requestBody(f contractx.Filter) map[string]any {
	raw := map[string]any{
		"purpose": "for-sale",
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		raw["location"] = loc
	}
	if f.MinPriceAED > 0 {
		raw["price_min"] = f.MinPriceAED
	}
	if f.MaxPriceAED > 0 {
		raw["price_max"] = f.MaxPriceAED
	}
	if f.Bedrooms > 0 {
		raw["rooms"] = f.Bedrooms
	}
	if pt := strings.TrimSpace(f.PropertyType); pt != "" {
		raw["property_type"] = pt
	}

	body := make(map[string]any, len(raw))
	for key, val := range raw {
		if _, ok := allowedFilters[key]; !ok {
			log.Debug().Str("key", key).Msg("dropping unsupported listing filter")
			continue
		}
		body[key] = val
	}
	return body
}

// enrichAll runs map enrichment per candidate concurrently; enrichment calls
// are independent and failure-isolated, a failed one returns the candidate
// untouched.
func (c *Client) enrichAll(ctx context.Context, candidates []contractx.ListingCandidate) []contractx.ListingCandidate {
	if c.enricher == nil || len(candidates) == 0 {
		return candidates
	}

	out := make([]contractx.ListingCandidate, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand contractx.ListingCandidate) {
			defer wg.Done()
			out[i] = c.enricher.Enrich(ctx, cand)
		}(i, cand)
	}
	wg.Wait()
	return out
}

func (c *Client) post(ctx context.Context, path string, f contractx.Filter, body map[string]any) (map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	params := url.Values{}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	lang := strings.TrimSpace(f.Language)
	if lang == "" {
		lang = c.cfg.Language
	}
	if lang != "" {
		params.Set("langs", lang)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", strings.TrimSpace(c.cfg.APIKey))
	req.Header.Set("x-rapidapi-host", c.cfg.APIHost)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: listing http status=%d", contractx.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return payload, nil
}
