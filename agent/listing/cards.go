package listing

import (
	"strconv"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// normalizeCards flattens the provider payload into candidates. The provider
// has shipped several envelope shapes (data.results, results, hits) and field
// spellings; all observed variants are handled. Entries missing an id or any
// price are dropped, everything else is kept.
func normalizeCards(payload map[string]any) []contractx.ListingCandidate {
	var rows []any
	if data, ok := payload["data"].(map[string]any); ok {
		rows, _ = data["results"].([]any)
	}
	if rows == nil {
		if r, ok := payload["results"].([]any); ok {
			rows = r
		} else if h, ok := payload["hits"].([]any); ok {
			rows = h
		}
	}

	cards := make([]contractx.ListingCandidate, 0, len(rows))
	for _, row := range rows {
		entry, ok := row.(map[string]any)
		if !ok {
			continue
		}
		if card, ok := normalizeCard(entry); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

func normalizeCard(entry map[string]any) (contractx.ListingCandidate, bool) {
	card := contractx.ListingCandidate{
		ID:         stringField(entry, "id", "external_id", "reference"),
		Title:      stringField(entry, "title", "name"),
		PriceAED:   numField(entry, "price", "price_value", "list_price"),
		Bedrooms:   int(numField(entry, "rooms", "bedrooms")),
		Bathrooms:  int(numField(entry, "baths", "bathrooms")),
		SizeSqft:   numField(entry, "size", "area", "builtup_area"),
		Amenities:  amenityLabels(entry),
		TruChecked: truCheckStatus(entry),
		URL:        listingURL(entry),
		Address:    locationPath(entry),
		Coords:     coordinates(entry),
	}

	if card.ID == "" || card.Address == "" || card.PriceAED <= 0 {
		return contractx.ListingCandidate{}, false
	}
	return card, true
}

func listingURL(entry map[string]any) string {
	if meta, ok := entry["meta"].(map[string]any); ok {
		if u := stringField(meta, "url"); u != "" {
			return u
		}
	}
	return stringField(entry, "url")
}

// locationPath joins the provider's location tree into a display address.
func locationPath(entry map[string]any) string {
	tree, ok := entry["location_tree"].([]any)
	if !ok {
		tree, _ = entry["location"].([]any)
	}

	var parts []string
	for _, item := range tree {
		switch node := item.(type) {
		case map[string]any:
			if name := stringField(node, "name", "location"); name != "" {
				parts = append(parts, name)
			}
		case string:
			parts = append(parts, node)
		}
	}
	if len(parts) == 0 {
		if textual := stringField(entry, "location_title", "display_location"); textual != "" {
			parts = append(parts, textual)
		}
	}
	return strings.Join(parts, " • ")
}

func amenityLabels(entry map[string]any) []string {
	raw, ok := entry["amenities"].([]any)
	if !ok {
		raw, _ = entry["amenity_labels"].([]any)
	}

	var labels []string
	for _, item := range raw {
		switch node := item.(type) {
		case map[string]any:
			if label := stringField(node, "name", "label", "title"); label != "" {
				labels = append(labels, label)
			}
		case string:
			labels = append(labels, node)
		}
	}
	return labels
}

func truCheckStatus(entry map[string]any) bool {
	verification, ok := entry["verification"].(map[string]any)
	if !ok {
		return false
	}
	status := strings.ToLower(stringField(verification, "status", "state"))
	return status == "truchecked" || status == "verified"
}

func coordinates(entry map[string]any) *contractx.Coordinates {
	for _, key := range []string{"geography", "coordinates"} {
		node, ok := entry[key].(map[string]any)
		if !ok {
			continue
		}
		lat := numField(node, "lat", "latitude")
		lon := numField(node, "lng", "lon", "longitude")
		if lat != 0 || lon != 0 {
			return &contractx.Coordinates{Latitude: lat, Longitude: lon}
		}
	}
	return nil
}

func stringField(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		switch val := entry[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

func numField(entry map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch val := entry[key].(type) {
		case float64:
			if val != 0 {
				return val
			}
		case string:
			cleaned := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
			if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil && parsed != 0 {
				return parsed
			}
		case int:
			if val != 0 {
				return float64(val)
			}
		}
	}
	return 0
}
