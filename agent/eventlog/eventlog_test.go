package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := New(Config{
		Dir:          t.TempDir(),
		LeadFile:     "leads.jsonl",
		FeedbackFile: "feedback.jsonl",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger
}

func TestAppendWritesOneJSONLinePerEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Dir: dir, LeadFile: "leads.jsonl", FeedbackFile: "feedback.jsonl"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	e := contractx.Event{
		Kind:    contractx.EventLead,
		Name:    "Sara",
		Email:   "sara@example.com",
		Source:  contractx.LeadSourceAuto,
		Message: "2BR in JLT",
	}
	if err := logger.Append(e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "leads.jsonl"))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lines := 0
	for sc.Scan() {
		lines++
		var decoded contractx.Event
		if err := json.Unmarshal(sc.Bytes(), &decoded); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
		if decoded.Timestamp.IsZero() {
			t.Fatal("appended event has no timestamp")
		}
	}
	if lines != 1 {
		t.Fatalf("log has %d lines, want 1", lines)
	}
}

func TestAppendConcurrentWritesDoNotInterleave(t *testing.T) {
	t.Parallel()

	logger := newTestLogger(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := logger.Append(contractx.Event{
				Kind:    contractx.EventLead,
				Name:    fmt.Sprintf("visitor-%d", i),
				Email:   fmt.Sprintf("v%d@example.com", i),
				Source:  contractx.LeadSourceAuto,
				Message: "concurrent",
			})
			if err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	events, err := logger.ReadAll(contractx.EventLead)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(events) != n {
		t.Fatalf("ReadAll() returned %d events, want %d", len(events), n)
	}
	seen := map[string]struct{}{}
	for _, e := range events {
		seen[e.Name] = struct{}{}
	}
	if len(seen) != n {
		t.Fatalf("found %d distinct names, want %d", len(seen), n)
	}
}

func TestReadAllSkipsTornTrailingLine(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Dir: dir, LeadFile: "leads.jsonl", FeedbackFile: "feedback.jsonl"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := logger.Append(contractx.Event{Kind: contractx.EventLead, Name: "ok", Email: "ok@example.com"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Simulate an interrupted write.
	f, err := os.OpenFile(filepath.Join(dir, "leads.jsonl"), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString(`{"name":"torn`); err != nil {
		t.Fatalf("write torn line: %v", err)
	}
	f.Close()

	events, err := logger.ReadAll(contractx.EventLead)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(events) != 1 || events[0].Name != "ok" {
		t.Fatalf("ReadAll() = %+v, want only the intact event", events)
	}
}

func TestReadAllMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	logger := newTestLogger(t)
	events, err := logger.ReadAll(contractx.EventFeedback)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("ReadAll() = %d events, want 0", len(events))
	}
}

func TestSubmitLeadValidation(t *testing.T) {
	t.Parallel()

	logger := newTestLogger(t)

	if _, err := logger.SubmitLead(LeadSubmission{Email: "no-name@example.com"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SubmitLead() without name error = %v, want ErrValidation", err)
	}
	if _, err := logger.SubmitLead(LeadSubmission{Name: "Sara"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SubmitLead() without contact error = %v, want ErrValidation", err)
	}

	event, err := logger.SubmitLead(LeadSubmission{Name: "Sara", Phone: "+971501234567"})
	if err != nil {
		t.Fatalf("SubmitLead() error = %v", err)
	}
	if event.Source != contractx.LeadSourceManual {
		t.Fatalf("Source = %q, want manual", event.Source)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("submitted lead has no timestamp")
	}
}

func TestSubmitFeedbackRequiresQuestion(t *testing.T) {
	t.Parallel()

	logger := newTestLogger(t)

	if _, err := logger.SubmitFeedback(FeedbackSubmission{Context: "chat"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("SubmitFeedback() without question error = %v, want ErrValidation", err)
	}

	event, err := logger.SubmitFeedback(FeedbackSubmission{Question: "what about off-plan?"})
	if err != nil {
		t.Fatalf("SubmitFeedback() error = %v", err)
	}
	if event.Kind != contractx.EventFeedback {
		t.Fatalf("Kind = %q, want feedback", event.Kind)
	}
	if event.Timestamp.Before(time.Now().Add(-time.Minute)) {
		t.Fatalf("Timestamp = %v, want recent", event.Timestamp)
	}
}
