package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

func TestValidateFilterRequiresLocationOrBudget(t *testing.T) {
	t.Parallel()

	client := New(Config{APIKey: "key", AuditLogPath: ""}, nil)

	_, err := client.Search(context.Background(), contractx.Filter{Bedrooms: 2})
	if !errors.Is(err, contractx.ErrInvalidFilter) {
		t.Fatalf("Search() error = %v, want ErrInvalidFilter", err)
	}
}

func TestValidateFilterRejectsInvertedBounds(t *testing.T) {
	t.Parallel()

	client := New(Config{APIKey: "key", AuditLogPath: ""}, nil)

	_, err := client.Search(context.Background(), contractx.Filter{
		MinPriceAED: 2_000_000,
		MaxPriceAED: 1_000_000,
	})
	if !errors.Is(err, contractx.ErrInvalidFilter) {
		t.Fatalf("Search() error = %v, want ErrInvalidFilter", err)
	}
}

func TestSearchWithoutAPIKeyDegrades(t *testing.T) {
	t.Parallel()

	client := New(Config{AuditLogPath: ""}, nil)

	res, err := client.Search(context.Background(), contractx.Filter{Location: "JLT"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !res.Degraded {
		t.Fatal("Degraded = false, want true without credentials")
	}
	if len(res.Candidates) != 0 {
		t.Fatalf("Candidates = %d, want 0", len(res.Candidates))
	}
}

func TestSearchProviderErrorDegradesInsteadOfFailing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, APIKey: "key", AuditLogPath: ""}, nil)

	res, err := client.Search(context.Background(), contractx.Filter{Location: "JLT"})
	if err != nil {
		t.Fatalf("Search() error = %v, want degraded result instead", err)
	}
	if !res.Degraded {
		t.Fatal("Degraded = false, want true on provider failure")
	}
}

func TestSearchNormalizesProviderPayload(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-rapidapi-key"); got != "key" {
			t.Errorf("x-rapidapi-key = %q, want key", got)
		}
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		fmt.Fprint(w, `{
			"results": [
				{
					"id": 101,
					"title": "Marina Gate 2BR",
					"price": 1900000,
					"rooms": 2,
					"baths": 2,
					"size": "1,150",
					"location_tree": [{"name": "Dubai"}, {"name": "Dubai Marina"}],
					"verification": {"status": "TruChecked"},
					"geography": {"lat": 25.08, "lng": 55.14}
				},
				{
					"title": "missing id and price"
				}
			]
		}`)
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, APIKey: "key", AuditLogPath: ""}, nil)

	res, err := client.Search(context.Background(), contractx.Filter{
		Location:    "Dubai Marina",
		MaxPriceAED: 2_000_000,
		Bedrooms:    2,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if res.Degraded {
		t.Fatal("Degraded = true on a healthy provider")
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("Candidates = %d, want 1 (malformed entry dropped)", len(res.Candidates))
	}

	c := res.Candidates[0]
	if c.ID != "101" {
		t.Fatalf("ID = %q, want 101", c.ID)
	}
	if c.Address != "Dubai • Dubai Marina" {
		t.Fatalf("Address = %q", c.Address)
	}
	if !c.TruChecked {
		t.Fatal("TruChecked = false, want true")
	}
	if c.SizeSqft != 1150 {
		t.Fatalf("SizeSqft = %v, want 1150", c.SizeSqft)
	}
	if c.Coords == nil || c.Coords.Latitude != 25.08 {
		t.Fatalf("Coords = %+v", c.Coords)
	}

	if gotBody["location"] != "Dubai Marina" {
		t.Fatalf("request location = %v", gotBody["location"])
	}
	if gotBody["price_max"] != float64(2_000_000) {
		t.Fatalf("request price_max = %v", gotBody["price_max"])
	}
	if _, ok := gotBody["purpose"]; !ok {
		t.Fatal("request body missing purpose")
	}
}

type stubEnricher struct{}

func (s *stubEnricher) Enrich(ctx context.Context, c contractx.ListingCandidate) contractx.ListingCandidate {
	c.Map = &contractx.MapDetails{Place: "near " + c.Address}
	return c
}

func (s *stubEnricher) Enabled() bool { return true }

func TestSearchRunsEnrichmentPerCandidate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [
			{"id": "a", "price": 1000000, "location_tree": ["JLT"]},
			{"id": "b", "price": 1200000, "location_tree": ["JLT"]}
		]}`)
	}))
	t.Cleanup(server.Close)

	enricher := &stubEnricher{}
	client := New(Config{BaseURL: server.URL, APIKey: "key", AuditLogPath: ""}, enricher)

	res, err := client.Search(context.Background(), contractx.Filter{Location: "JLT"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("Candidates = %d, want 2", len(res.Candidates))
	}
	for _, c := range res.Candidates {
		if c.Map == nil {
			t.Fatalf("candidate %s not enriched", c.ID)
		}
	}
}
