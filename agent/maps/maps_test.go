package maps

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

func TestNewRejectsMalformedPointsOfInterest(t *testing.T) {
	t.Parallel()

	_, err := New(Config{PointsOfInterest: `{"not":"an array"`})
	if !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestEnabledRequiresMapboxAndToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"configured", Config{Provider: "mapbox", AccessToken: "tok"}, true},
		{"case insensitive provider", Config{Provider: "Mapbox", AccessToken: "tok"}, true},
		{"missing token", Config{Provider: "mapbox"}, false},
		{"unknown provider", Config{Provider: "osm", AccessToken: "tok"}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, err := New(tc.cfg)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if got := client.Enabled(); got != tc.want {
				t.Fatalf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEnrichDisabledSetsGuardOnly(t *testing.T) {
	t.Parallel()

	client, err := New(Config{Provider: "mapbox"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	in := contractx.ListingCandidate{
		ID:     "l1",
		Coords: &contractx.Coordinates{Latitude: 25.08, Longitude: 55.14},
	}
	got := client.Enrich(context.Background(), in)

	if !got.MapUnavailable {
		t.Fatal("MapUnavailable = false, want true when disabled")
	}
	if got.Map != nil {
		t.Fatalf("Map = %+v, want nil when disabled", got.Map)
	}
	if got.ID != "l1" {
		t.Fatal("candidate identity changed during a no-op enrichment")
	}
}

func TestEnrichWithoutCoordinatesSetsGuard(t *testing.T) {
	t.Parallel()

	client, err := New(Config{Provider: "mapbox", AccessToken: "tok"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := client.Enrich(context.Background(), contractx.ListingCandidate{ID: "l1"})
	if !got.MapUnavailable {
		t.Fatal("MapUnavailable = false, want true for a listing with no coordinates")
	}
}

func TestStaticMapURLEmbedsCoordinatesAndStyle(t *testing.T) {
	t.Parallel()

	client, err := New(Config{Provider: "mapbox", AccessToken: "tok", StaticStyle: "mapbox/streets-v12"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got := client.staticMapURL(25.08, 55.14)
	if !strings.Contains(got, "mapbox/streets-v12") {
		t.Fatalf("staticMapURL() = %q, missing style", got)
	}
	if !strings.Contains(got, "55.14") || !strings.Contains(got, "25.08") {
		t.Fatalf("staticMapURL() = %q, missing coordinates", got)
	}
	if !strings.Contains(got, "access_token=tok") {
		t.Fatalf("staticMapURL() = %q, missing token", got)
	}
}
