// Package eventlog persists lead and feedback events as append-only JSONL
// files, one file per event kind. The files are a contractual export format
// consumed by downstream CRM tooling, so lines are plain JSON objects with
// UTC timestamps and no framing.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

type Config struct {
	Dir          string `envconfig:"DIR" split_words:"true" default:"logs"`
	LeadFile     string `envconfig:"LEAD_FILE" split_words:"true" default:"leads.jsonl"`
	FeedbackFile string `envconfig:"FEEDBACK_FILE" split_words:"true" default:"feedback.jsonl"`
}

// Logger writes events to the file matching their kind. Safe for concurrent
// use; a per-file mutex serializes writes so lines never interleave.
type Logger struct {
	files map[contractx.EventKind]*logFile
}

type logFile struct {
	mu   sync.Mutex
	path string
}

func New(cfg Config) (*Logger, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("%w: event log dir is required", contractx.ErrConfiguration)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create event log dir: %v", contractx.ErrConfiguration, err)
	}
	return &Logger{
		files: map[contractx.EventKind]*logFile{
			contractx.EventLead:     {path: filepath.Join(cfg.Dir, cfg.LeadFile)},
			contractx.EventFeedback: {path: filepath.Join(cfg.Dir, cfg.FeedbackFile)},
		},
	}, nil
}

// Append writes one event as a single JSON line. The write is flushed before
// returning so a crash cannot lose an acknowledged event.
func (l *Logger) Append(e contractx.Event) error {
	f, ok := l.files[e.Kind]
	if !ok {
		return fmt.Errorf("%w: unknown event kind %q", contractx.ErrValidation, e.Kind)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	} else {
		e.Timestamp = e.Timestamp.UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: marshal event: %v", contractx.ErrLogWrite, err)
	}
	line = append(line, '\n')

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", contractx.ErrLogWrite, f.path, err)
	}
	defer fh.Close()

	if _, err := fh.Write(line); err != nil {
		return fmt.Errorf("%w: append to %s: %v", contractx.ErrLogWrite, f.path, err)
	}
	if err := fh.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %v", contractx.ErrLogWrite, f.path, err)
	}
	return nil
}

// ReadAll loads every well-formed event of one kind. A torn trailing line
// from an interrupted write is skipped with a warning rather than failing
// the whole read.
func (l *Logger) ReadAll(kind contractx.EventKind) ([]contractx.Event, error) {
	f, ok := l.files[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event kind %q", contractx.ErrValidation, kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", contractx.ErrLogWrite, f.path, err)
	}
	defer fh.Close()

	var events []contractx.Event
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var e contractx.Event
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Str("file", f.path).Err(err).Msg("eventlog: skipping malformed line")
			continue
		}
		e.Kind = kind
		events = append(events, e)
	}
	if err := sc.Err(); err != nil {
		return events, fmt.Errorf("%w: scan %s: %v", contractx.ErrLogWrite, f.path, err)
	}
	return events, nil
}
