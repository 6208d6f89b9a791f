// Package maps enriches listing candidates with Mapbox data: reverse
// geocoding, a static map image URL, and travel-time estimates to configured
// points of interest. Enrichment is strictly best-effort; a candidate is
// never dropped or failed because of this package.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

const (
	mapboxBaseURL      = "https://api.mapbox.com"
	mapboxGeocodingURL = mapboxBaseURL + "/geocoding/v5/mapbox.places"
	mapboxStaticURL    = mapboxBaseURL + "/styles/v1"
	mapboxMatrixURL    = mapboxBaseURL + "/directions-matrix/v1"

	maxResponseSizeBytes = 1 << 20
)

// PointOfInterest is a destination travel times are estimated against.
type PointOfInterest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Config struct {
	Provider          string        `envconfig:"PROVIDER" split_words:"true" default:"mapbox"`
	AccessToken       string        `envconfig:"ACCESS_TOKEN" split_words:"true"`
	StaticStyle       string        `envconfig:"STATIC_STYLE" split_words:"true" default:"mapbox/streets-v12"`
	DirectionsProfile string        `envconfig:"PROFILE" split_words:"true" default:"mapbox/driving"`
	Timeout           time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"12s"`
	// PointsOfInterest is a JSON array of {name, latitude, longitude}.
	PointsOfInterest string `envconfig:"POINTS_OF_INTEREST" split_words:"true"`
}

// Client is the map-enrichment collaborator. Without credentials every call
// no-ops with the candidate's MapUnavailable guard set.
type Client struct {
	cfg        Config
	httpClient *http.Client
	pois       []PointOfInterest
}

var _ contractx.Enricher = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}

	var pois []PointOfInterest
	if raw := strings.TrimSpace(cfg.PointsOfInterest); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pois); err != nil {
			return nil, fmt.Errorf("%w: parse points of interest: %v", contractx.ErrConfiguration, err)
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		pois:       pois,
	}, nil
}

func (c *Client) Enabled() bool {
	return strings.EqualFold(strings.TrimSpace(c.cfg.Provider), "mapbox") &&
		strings.TrimSpace(c.cfg.AccessToken) != ""
}

// Enrich attaches map details to the candidate. On any failure the candidate
// comes back unchanged apart from the MapUnavailable guard.
func (c *Client) Enrich(ctx context.Context, cand contractx.ListingCandidate) contractx.ListingCandidate {
	if !c.Enabled() {
		cand.MapUnavailable = true
		return cand
	}
	if cand.Coords == nil {
		log.Debug().Str("listing_id", cand.ID).Msg("listing has no coordinates, skipping map enrichment")
		cand.MapUnavailable = true
		return cand
	}

	lat, lon := cand.Coords.Latitude, cand.Coords.Longitude
	details := &contractx.MapDetails{
		Latitude:     lat,
		Longitude:    lon,
		StaticMapURL: c.staticMapURL(lat, lon),
	}

	place, geocodeErr := c.reverseGeocode(ctx, lat, lon)
	if geocodeErr == nil {
		details.Place = place
	}

	travel, travelErr := c.travelTimes(ctx, lat, lon)
	if travelErr == nil {
		details.TravelTimes = travel
	}

	if geocodeErr != nil && travelErr != nil {
		log.Debug().
			AnErr("geocode", geocodeErr).
			AnErr("matrix", travelErr).
			Str("listing_id", cand.ID).
			Msg("map provider unreachable for listing")
		cand.MapUnavailable = true
	}

	cand.Map = details
	return cand
}

func (c *Client) staticMapURL(lat, lon float64) string {
	marker := fmt.Sprintf("pin-s-a+2f855a(%f,%f)", lon, lat)
	return fmt.Sprintf(
		"%s/%s/static/%s/%f,%f,14/640x360@2x?access_token=%s",
		mapboxStaticURL, c.cfg.StaticStyle, marker, lon, lat, url.QueryEscape(c.cfg.AccessToken),
	)
}

func (c *Client) reverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	endpoint := fmt.Sprintf("%s/%f,%f.json", mapboxGeocodingURL, lon, lat)
	payload, err := c.get(ctx, endpoint, url.Values{
		"types": {"address,place,locality,region"},
		"limit": {"1"},
	})
	if err != nil {
		return "", err
	}

	var parsed struct {
		Features []struct {
			PlaceName string `json:"place_name"`
		} `json:"features"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("decode geocoding response: %w", err)
	}
	if len(parsed.Features) == 0 {
		return "", errors.New("no geocoding feature returned")
	}
	return parsed.Features[0].PlaceName, nil
}

func (c *Client) travelTimes(ctx context.Context, lat, lon float64) ([]contractx.TravelTime, error) {
	if len(c.pois) == 0 {
		return nil, nil
	}

	coords := make([]string, 0, len(c.pois)+1)
	coords = append(coords, fmt.Sprintf("%f,%f", lon, lat))
	for _, poi := range c.pois {
		coords = append(coords, fmt.Sprintf("%f,%f", poi.Longitude, poi.Latitude))
	}
	endpoint := fmt.Sprintf("%s/%s/%s", mapboxMatrixURL, c.cfg.DirectionsProfile, strings.Join(coords, ";"))

	payload, err := c.get(ctx, endpoint, url.Values{"annotations": {"duration,distance"}})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Durations [][]*float64 `json:"durations"`
		Distances [][]*float64 `json:"distances"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", err)
	}

	estimates := make([]contractx.TravelTime, 0, len(c.pois))
	for i, poi := range c.pois {
		est := contractx.TravelTime{Name: poi.Name}
		// Row 0 is the origin; column i+1 is this POI.
		if len(parsed.Durations) > 0 && len(parsed.Durations[0]) > i+1 {
			if raw := parsed.Durations[0][i+1]; raw != nil {
				minutes := *raw / 60
				est.DurationMinutes = &minutes
			}
		}
		if len(parsed.Distances) > 0 && len(parsed.Distances[0]) > i+1 {
			est.DistanceMeters = parsed.Distances[0][i+1]
		}
		estimates = append(estimates, est)
	}
	return estimates, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	params.Set("access_token", strings.TrimSpace(c.cfg.AccessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mapbox request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read mapbox response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: mapbox http status=%d", contractx.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return raw, nil
}
