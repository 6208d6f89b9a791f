package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// PersonaKind selects one of the fixed persona variants in the pipeline.
type PersonaKind string

const (
	PersonaSpecialist PersonaKind = "preference_specialist"
	PersonaScout      PersonaKind = "scout"
	PersonaConcierge  PersonaKind = "concierge"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry in a session's append-only history.
type ConversationTurn struct {
	Index int       `json:"index"`
	Role  Role      `json:"role"`
	Text  string    `json:"text"`
	At    time.Time `json:"timestamp"`
}

// Requirements holds the preferences extracted from the conversation so far.
// Zero values mean "unknown". Merges are monotonic: a known field is only
// replaced by another explicit value, never cleared by silence.
type Requirements struct {
	Locations    []string `json:"locations,omitempty"`
	BudgetMinAED float64  `json:"budget_min_aed,omitempty"`
	BudgetMaxAED float64  `json:"budget_max_aed,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
}

// Merge folds explicitly-set fields of in into r.
func (r *Requirements) Merge(in Requirements) {
	if len(in.Locations) > 0 {
		r.Locations = append([]string(nil), in.Locations...)
	}
	if in.BudgetMinAED > 0 {
		r.BudgetMinAED = in.BudgetMinAED
	}
	if in.BudgetMaxAED > 0 {
		r.BudgetMaxAED = in.BudgetMaxAED
	}
	if in.Bedrooms > 0 {
		r.Bedrooms = in.Bedrooms
	}
	if in.PropertyType != "" {
		r.PropertyType = in.PropertyType
	}
}

func (r Requirements) HasLocation() bool {
	return len(r.Locations) > 0
}

func (r Requirements) HasBudget() bool {
	return r.BudgetMinAED > 0 || r.BudgetMaxAED > 0
}

// Searchable reports whether the requirements can form a valid listing
// filter (location or a budget bound).
func (r Requirements) Searchable() bool {
	return r.HasLocation() || r.HasBudget()
}

// Complete reports whether enough is known to treat the visitor as a
// qualified lead: location, a budget ceiling, and bedrooms.
func (r Requirements) Complete() bool {
	return r.HasLocation() && r.BudgetMaxAED > 0 && r.Bedrooms > 0
}

// Filter is a structured listing search request.
type Filter struct {
	Location     string
	MinPriceAED  float64
	MaxPriceAED  float64
	Bedrooms     int
	PropertyType string
	Page         int
	Language     string
}

// TravelTime is an estimated trip from a listing to a point of interest.
// Nil fields mean the matrix response had no value for that leg.
type TravelTime struct {
	Name            string   `json:"name"`
	DistanceMeters  *float64 `json:"distance_meters"`
	DurationMinutes *float64 `json:"duration_minutes"`
}

// MapDetails is the optional enrichment attached to a candidate when the map
// collaborator succeeded for it.
type MapDetails struct {
	Latitude     float64      `json:"latitude"`
	Longitude    float64      `json:"longitude"`
	Place        string       `json:"place,omitempty"`
	StaticMapURL string       `json:"static_map_url,omitempty"`
	TravelTimes  []TravelTime `json:"travel_times,omitempty"`
}

// Coordinates is a listing's position when the provider exposed one.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ListingCandidate is one normalized property result. Map is nil when
// enrichment was skipped or failed; MapUnavailable distinguishes "provider
// down / not configured" from "listing has no coordinates".
type ListingCandidate struct {
	ID             string       `json:"id"`
	Title          string       `json:"title,omitempty"`
	Address        string       `json:"address"`
	PriceAED       float64      `json:"price_aed"`
	Bedrooms       int          `json:"bedrooms"`
	Bathrooms      int          `json:"bathrooms,omitempty"`
	SizeSqft       float64      `json:"size_sqft,omitempty"`
	Amenities      []string     `json:"amenities,omitempty"`
	TruChecked     bool         `json:"is_trucheck,omitempty"`
	URL            string       `json:"url,omitempty"`
	Coords         *Coordinates `json:"coordinates,omitempty"`
	Map            *MapDetails  `json:"map,omitempty"`
	MapUnavailable bool         `json:"map_unavailable,omitempty"`
}

// SearchResult carries candidates plus a degraded flag so the concierge can
// phrase "provider unavailable" differently from "zero matches".
type SearchResult struct {
	Candidates []ListingCandidate
	Degraded   bool
}

// Completion is the gateway's reply to a single model call. UsedFallback is
// true when the text came from the local heuristic rather than the model.
type Completion struct {
	Text         string
	UsedFallback bool
}

// AgentResult is the output of one persona invocation.
type AgentResult struct {
	Persona      PersonaKind
	Text         string
	Requirements *Requirements
	Listings     []ListingCandidate
	Degraded     bool
	UsedFallback bool
}

type EventKind string

const (
	EventLead     EventKind = "lead"
	EventFeedback EventKind = "feedback"
)

const (
	LeadSourceAuto   = "auto"
	LeadSourceManual = "manual"
)

// Event is a captured lead or feedback record. Immutable once created; the
// JSON shape is the on-disk log line.
type Event struct {
	Kind      EventKind `json:"-"`
	Timestamp time.Time `json:"timestamp"`

	// Lead fields.
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
	Source  string `json:"source,omitempty"`

	// Feedback fields.
	Question string `json:"question,omitempty"`
	Context  string `json:"context,omitempty"`
}

// ContentHash identifies the event payload independent of timestamp. Used by
// tests for dedup assertions; the log itself never deduplicates.
func (e Event) ContentHash() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		string(e.Kind), e.Name, e.Email, e.Phone, e.Message, e.Source, e.Question, e.Context,
	}, "\x1f")))
	return hex.EncodeToString(sum[:])
}
