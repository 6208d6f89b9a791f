package listing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// auditLog appends one JSON line per provider call so raw search traffic can
// be replayed offline. Best-effort: audit failures never affect a search.
type auditLog struct {
	mu   sync.Mutex
	path string
}

type auditRecord struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Endpoint  string         `json:"endpoint"`
	Request   map[string]any `json:"request"`
	Count     int            `json:"count"`
}

func newAuditLog(path string) *auditLog {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cannot create audit log directory, auditing disabled")
		return nil
	}
	return &auditLog{path: path}
}

func (a *auditLog) record(endpoint string, request map[string]any, count int) {
	if a == nil {
		return
	}

	line, err := json.Marshal(auditRecord{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Endpoint:  endpoint,
		Request:   request,
		Count:     count,
	})
	if err != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", a.path).Msg("audit log open failed")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		log.Warn().Err(err).Str("path", a.path).Msg("audit log write failed")
	}
}
