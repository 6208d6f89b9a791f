package eventlog

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

// LeadSubmission is a manually submitted lead, typically from the web form.
type LeadSubmission struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message,omitempty"`
}

// FeedbackSubmission is a manually reported unanswered question.
type FeedbackSubmission struct {
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

// SubmitLead validates and records a manual lead. A lead needs a name and at
// least one way to reach the person back.
func (l *Logger) SubmitLead(s LeadSubmission) (contractx.Event, error) {
	name := strings.TrimSpace(s.Name)
	email := strings.TrimSpace(s.Email)
	phone := strings.TrimSpace(s.Phone)

	if name == "" {
		return contractx.Event{}, fmt.Errorf("%w: lead name is required", contractx.ErrValidation)
	}
	if email == "" && phone == "" {
		return contractx.Event{}, fmt.Errorf("%w: lead needs an email or phone", contractx.ErrValidation)
	}

	e := contractx.Event{
		Kind:      contractx.EventLead,
		Timestamp: time.Now().UTC(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Message:   strings.TrimSpace(s.Message),
		Source:    contractx.LeadSourceManual,
	}
	if err := l.Append(e); err != nil {
		return contractx.Event{}, err
	}
	return e, nil
}

// SubmitFeedback validates and records a manual feedback entry.
func (l *Logger) SubmitFeedback(s FeedbackSubmission) (contractx.Event, error) {
	question := strings.TrimSpace(s.Question)
	if question == "" {
		return contractx.Event{}, fmt.Errorf("%w: feedback question is required", contractx.ErrValidation)
	}

	e := contractx.Event{
		Kind:      contractx.EventFeedback,
		Timestamp: time.Now().UTC(),
		Question:  question,
		Context:   strings.TrimSpace(s.Context),
	}
	if err := l.Append(e); err != nil {
		return contractx.Event{}, err
	}
	return e, nil
}
