package personas

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// knownAreas maps lowercase location cues to their display names. Longer
// cues are matched first so "dubai marina" wins over "dubai".
var knownAreas = map[string]string{
	"dubai marina":         "Dubai Marina",
	"downtown":             "Downtown Dubai",
	"jlt":                  "Jumeirah Lake Towers",
	"jumeirah lake towers": "Jumeirah Lake Towers",
	"business bay":         "Business Bay",
	"palm jumeirah":        "Palm Jumeirah",
	"dubai hills":          "Dubai Hills",
	"arabian ranches":      "Arabian Ranches",
	"jbr":                  "Jumeirah Beach Residence",
	"dubai creek harbour":  "Dubai Creek Harbour",
	"al barsha":            "Al Barsha",
	"mirdif":               "Mirdif",
	"jumeirah":             "Jumeirah",
}

// propertyTypeCues is ordered most specific first so a phrase naming two
// types ("studio apartment") always resolves to the same one.
var propertyTypeCues = []struct {
	cue  string
	name string
}{
	{"studio", "studio"},
	{"penthouse", "penthouse"},
	{"townhouse", "townhouse"},
	{"villa", "villa"},
	{"flat", "apartment"},
	{"apartment", "apartment"},
}

var (
	bedroomRe = regexp.MustCompile(`(?i)\b(\d+)\s*[- ]?bed(?:room)?s?\b`)

	// Money amounts: a magnitude suffix (2.5m, 200k), an explicit currency
	// (1,800,000 AED), or a bare figure large enough to be a price.
	amountRe = regexp.MustCompile(`(?i)\b(\d+(?:[.,]\d+)?)\s*(million|mil|m|k)\b|\b(\d{1,3}(?:,\d{3})+|\d{5,})(?:\s*(?:aed|dirhams?|dhs))?\b`)

	upperBoundRe = regexp.MustCompile(`(?i)\b(?:under|below|up\s+to|max(?:imum)?|at\s+most|less\s+than|within)\b`)
	lowerBoundRe = regexp.MustCompile(`(?i)\b(?:over|above|at\s+least|min(?:imum)?|more\s+than|starting\s+(?:at|from)|from)\b`)
)

// extractRequirements pulls explicitly mentioned preference fields out of a
// single user turn. Only fields with a concrete value are set; the caller
// merges the delta so silence never clears prior knowledge.
func extractRequirements(text string) contractx.Requirements {
	var delta contractx.Requirements
	lower := strings.ToLower(text)

	if m := bedroomRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			delta.Bedrooms = n
		}
	}

	if amounts := parseAmounts(text); len(amounts) > 0 {
		switch {
		case len(amounts) >= 2:
			// Two or more figures ("between 1M and 2M"): extremes form the range.
			sort.Float64s(amounts)
			delta.BudgetMinAED = amounts[0]
			delta.BudgetMaxAED = amounts[len(amounts)-1]
		case lowerBoundRe.MatchString(lower) && !upperBoundRe.MatchString(lower):
			delta.BudgetMinAED = amounts[0]
		default:
			// "under 2M", "2M budget": a lone figure reads as the ceiling.
			delta.BudgetMaxAED = amounts[0]
		}
	}

	if locations := matchAreas(lower); len(locations) > 0 {
		delta.Locations = locations
	}

	for _, pt := range propertyTypeCues {
		if strings.Contains(lower, pt.cue) {
			delta.PropertyType = pt.name
			break
		}
	}

	return delta
}

func parseAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			base, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
			if err != nil {
				continue
			}
			switch strings.ToLower(m[2]) {
			case "m", "mil", "million":
				amounts = append(amounts, base*1_000_000)
			case "k":
				amounts = append(amounts, base*1_000)
			}
			continue
		}
		if m[3] != "" {
			raw := strings.ReplaceAll(m[3], ",", "")
			if val, err := strconv.ParseFloat(raw, 64); err == nil && val >= 10_000 {
				amounts = append(amounts, val)
			}
		}
	}
	return amounts
}

func matchAreas(lower string) []string {
	found := map[string]struct{}{}
	for cue, display := range knownAreas {
		if strings.Contains(lower, cue) {
			found[display] = struct{}{}
		}
	}
	// "jumeirah" is a substring of several area cues; drop the generic area
	// when a more specific one matched.
	if len(found) > 1 {
		for _, specific := range []string{"Palm Jumeirah", "Jumeirah Lake Towers", "Jumeirah Beach Residence"} {
			if _, ok := found[specific]; ok {
				delete(found, "Jumeirah")
			}
		}
	}

	if len(found) == 0 {
		return nil
	}
	out := make([]string, 0, len(found))
	for name := range found {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
