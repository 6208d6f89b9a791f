package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/specialist.txt
	specialistRaw string

	//go:embed template/concierge.txt
	conciergeRaw string
)

// PromptSet holds the system prompts for the model-backed personas. The
// scout is deterministic and has none.
type PromptSet struct {
	Specialist string
	Concierge  string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Specialist: strings.TrimSpace(specialistRaw),
		Concierge:  strings.TrimSpace(conciergeRaw),
	}
}
