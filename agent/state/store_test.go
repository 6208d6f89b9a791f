package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/neuraestate/propmatch/agent/contract"
)

func TestRedisRESTStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &RedisRESTStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "propmatch:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "propmatch:session:abc")
	}
}

func TestRedisRESTStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &RedisRESTStore{keyPrefix: defaultStoreKeyPrefix}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestRedisRESTStoreSaveSetsPrefixedKeyAndTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(time.Hour),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	sess := NewSession("session-1", time.Now().UTC())
	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) != 5 {
		t.Fatalf("command = %#v, want SET key payload EX ttl", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != "propmatch:session:session-1" {
		t.Fatalf("command[1] = %v", gotCommand[1])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(3600) {
		t.Fatalf("ttl args = %v %v, want EX 3600", gotCommand[3], gotCommand[4])
	}
}

func TestRedisRESTStoreLoadRoundTrip(t *testing.T) {
	t.Parallel()

	sess := NewSession("session-1", time.Now().UTC())
	sess.AppendTurn(contractx.RoleUser, "hello", time.Now())
	payload, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, _ := json.Marshal(string(payload))
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	loaded, err := store.Load(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.SessionID != "session-1" || len(loaded.Turns) != 1 {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestRedisRESTStoreLoadMissingKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewRedisRESTStore(
		RedisRESTConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewRedisRESTStore() error = %v", err)
	}

	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	sess := NewSession("s-1", time.Now().UTC())
	sess.AppendTurn(contractx.RoleUser, "hello", time.Now())

	if err := store.Save(context.Background(), sess); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the original must not leak into the stored copy.
	sess.AppendTurn(contractx.RoleAssistant, "hi", time.Now())

	loaded, err := store.Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded.Turns) != 1 {
		t.Fatalf("loaded %d turns, want the snapshot at save time (1)", len(loaded.Turns))
	}

	if _, err := store.Load(context.Background(), "other"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load(other) error = %v, want ErrStateNotFound", err)
	}
}

func TestManagerDoPersistsAndSerializes(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	mgr := NewManager(store)

	err := mgr.Do(context.Background(), "s-1", func(s *Session) error {
		s.AppendTurn(contractx.RoleUser, "hello", time.Now())
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	loaded, err := store.Load(context.Background(), "s-1")
	if err != nil {
		t.Fatalf("Load() after Do error = %v", err)
	}
	if len(loaded.Turns) != 1 {
		t.Fatalf("persisted %d turns, want 1", len(loaded.Turns))
	}
}

func TestManagerSnapshotUnknownSession(t *testing.T) {
	t.Parallel()

	mgr := NewManager(NewMemoryStore())
	if _, err := mgr.Snapshot(context.Background(), "nope"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Snapshot() error = %v, want ErrStateNotFound", err)
	}
}
