package personas

import (
	"math"
	"sort"
	"strings"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// rankCandidates orders candidates by how many filter fields they match
// exactly, breaking ties by price proximity to the midpoint of the budget
// range. The sort is stable so upstream relevance order survives full ties.
func rankCandidates(cands []contractx.ListingCandidate, f contractx.Filter, reqs contractx.Requirements) []contractx.ListingCandidate {
	if len(cands) == 0 {
		return nil
	}

	target := budgetMidpoint(reqs)
	out := make([]contractx.ListingCandidate, len(cands))
	copy(out, cands)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := matchScore(out[i], f), matchScore(out[j], f)
		if si != sj {
			return si > sj
		}
		return priceDistance(out[i], target) < priceDistance(out[j], target)
	})
	return out
}

func matchScore(c contractx.ListingCandidate, f contractx.Filter) int {
	score := 0
	if f.Bedrooms > 0 && c.Bedrooms == f.Bedrooms {
		score++
	}
	if f.MinPriceAED > 0 && c.PriceAED >= f.MinPriceAED {
		score++
	}
	if f.MaxPriceAED > 0 && c.PriceAED <= f.MaxPriceAED {
		score++
	}
	if f.Location != "" && addressMatches(c.Address, f.Location) {
		score++
	}
	if c.TruChecked {
		score++
	}
	return score
}

func addressMatches(address, location string) bool {
	addr := strings.ToLower(address)
	for _, part := range strings.Split(location, ",") {
		if p := strings.TrimSpace(strings.ToLower(part)); p != "" && strings.Contains(addr, p) {
			return true
		}
	}
	return false
}

// budgetMidpoint picks the price the client is most likely aiming for. A
// one-sided budget uses the known bound directly.
func budgetMidpoint(r contractx.Requirements) float64 {
	switch {
	case r.BudgetMinAED > 0 && r.BudgetMaxAED > 0:
		return (r.BudgetMinAED + r.BudgetMaxAED) / 2
	case r.BudgetMaxAED > 0:
		return r.BudgetMaxAED
	case r.BudgetMinAED > 0:
		return r.BudgetMinAED
	default:
		return 0
	}
}

func priceDistance(c contractx.ListingCandidate, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Abs(c.PriceAED - target)
}
