// Package trigger evaluates heuristics over a completed turn and emits lead
// and feedback events. Evaluation is pure; persistence belongs to the event
// log and latch state to the session.
package trigger

import (
	"regexp"
	"strings"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// UAE numbers (+9715x...) and generic international/local formats with at
	// least 9 digits.
	phoneRe = regexp.MustCompile(`(?:\+?971|0)?5\d(?:[\s\-]?\d){7}|\+\d{1,3}(?:[\s\-]?\d){8,12}`)

	nameRe = regexp.MustCompile(`(?i)\bmy name is\s+([A-Za-z][A-Za-z'\-]*(?:\s+[A-Za-z][A-Za-z'\-]*){0,2})`)
)

// intentMarkers are transaction verbs that signal purchase or viewing intent
// without contact details.
var intentMarkers = []string{
	"buy", "purchase", "sell", "viewing", "call me", "contact me", "reach me",
}

// uncertaintyMarkers in the assistant reply indicate the client asked
// something the system could not answer well; worth flagging for the team.
var uncertaintyMarkers = []string{
	"i'm not sure", "i am not sure", "i don't have that information",
	"i do not have that information", "i can't answer", "i cannot answer",
}

// Turn is the evaluated view of one exchange.
type Turn struct {
	UserText     string
	Reply        string
	Requirements contractx.Requirements

	// FirstComplete is true only on the turn where the requirement set first
	// became complete. The session latch guarantees one-shot semantics.
	FirstComplete bool
	UsedFallback  bool
}

// Evaluate returns the events this turn produces, in deterministic order:
// leads before feedback. An empty slice means nothing fired.
func Evaluate(t Turn, now time.Time) []contractx.Event {
	var events []contractx.Event

	email := emailRe.FindString(t.UserText)
	phone := findPhone(t.UserText)
	hasContact := email != "" || phone != ""
	hasIntent := containsAny(strings.ToLower(t.UserText), intentMarkers)

	if hasContact || hasIntent || t.FirstComplete {
		events = append(events, contractx.Event{
			Kind:      contractx.EventLead,
			Timestamp: now.UTC(),
			Name:      extractName(t.UserText),
			Email:     email,
			Phone:     phone,
			Message:   strings.TrimSpace(t.UserText),
			Source:    contractx.LeadSourceAuto,
		})
	}

	if t.UsedFallback || containsAny(strings.ToLower(t.Reply), uncertaintyMarkers) {
		events = append(events, contractx.Event{
			Kind:      contractx.EventFeedback,
			Timestamp: now.UTC(),
			Question:  strings.TrimSpace(t.UserText),
			Context:   strings.TrimSpace(t.Reply),
		})
	}

	return events
}

func findPhone(text string) string {
	// Strip emails first so the digits of "user123@..." never read as a
	// phone number fragment.
	cleaned := emailRe.ReplaceAllString(text, " ")
	m := phoneRe.FindString(cleaned)
	if m == "" {
		return ""
	}
	if digitCount(m) < 9 {
		return ""
	}
	return strings.TrimSpace(m)
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func extractName(text string) string {
	if m := nameRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
