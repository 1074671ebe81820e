package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/ops-console/internal/db"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func strp(s string) *string { return &s }

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func mustLog(t *testing.T, store *Store, e Entry) int64 {
	t.Helper()
	id, err := store.Log(context.Background(), e)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	return id
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id := mustLog(t, store, Entry{
		OccurredAt: base,
		ActorID:    strp("alice"),
		Entity:     "supplier",
		EntityID:   "42",
		Action:     ActionUpdated,
		Before:     json.RawMessage(`{"name":"Acme"}`),
		After:      json.RawMessage(`{"name":"Acme Ltd"}`),
		IPAddress:  strp("10.0.0.7"),
		UserAgent:  strp("Mozilla/5.0"),
	})

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.ActorID == nil || *got.ActorID != "alice" {
		t.Errorf("ActorID = %v, want alice", got.ActorID)
	}
	if got.Entity != "supplier" || got.EntityID != "42" {
		t.Errorf("entity = %s/%s, want supplier/42", got.Entity, got.EntityID)
	}
	if got.Action != ActionUpdated {
		t.Errorf("Action = %q, want %q", got.Action, ActionUpdated)
	}
	if !got.OccurredAt.Equal(base) {
		t.Errorf("OccurredAt = %v, want %v", got.OccurredAt, base)
	}
	if string(got.Before) != `{"name":"Acme"}` {
		t.Errorf("Before = %s", got.Before)
	}
	if string(got.After) != `{"name":"Acme Ltd"}` {
		t.Errorf("After = %s", got.After)
	}
	if got.IPAddress == nil || *got.IPAddress != "10.0.0.7" {
		t.Errorf("IPAddress = %v", got.IPAddress)
	}
}

func TestLogKeepsMissingFieldsNull(t *testing.T) {
	store := setupStore(t)

	id := mustLog(t, store, Entry{Entity: "incident", Action: ActionCreated})

	got, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ActorID != nil || got.IPAddress != nil || got.UserAgent != nil {
		t.Errorf("expected nil optional fields, got %+v", got)
	}
	if got.Before != nil || got.After != nil {
		t.Errorf("expected nil snapshots, got %s / %s", got.Before, got.After)
	}
	if got.OccurredAt.IsZero() {
		t.Error("expected OccurredAt to default to now")
	}
}

func TestLogRejectsInvalid(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if _, err := store.Log(ctx, Entry{Action: ActionCreated}); err == nil {
		t.Error("expected error for missing entity")
	}
	if _, err := store.Log(ctx, Entry{Entity: "category"}); err == nil {
		t.Error("expected error for missing action")
	}
	if _, err := store.Log(ctx, Entry{Entity: "category", Action: ActionCreated, After: json.RawMessage(`{bad`)}); err == nil {
		t.Error("expected error for invalid snapshot")
	}
}

func TestQueryFilterByActor(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, actor := range []string{"alice", "bob", "alice"} {
		mustLog(t, store, Entry{ActorID: strp(actor), Entity: "supplier", Action: ActionUpdated})
	}
	mustLog(t, store, Entry{Entity: "supplier", Action: ActionDeleted})

	entries, err := store.Query(ctx, QueryFilter{ActorID: "alice"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for alice, got %d", len(entries))
	}

	n, err := store.Count(ctx, QueryFilter{ActorID: "alice"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
}

func TestQueryFilterByEntityAndAction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	mustLog(t, store, Entry{Entity: "supplier", Action: ActionCreated})
	mustLog(t, store, Entry{Entity: "supplier", Action: ActionUpdated})
	mustLog(t, store, Entry{Entity: "incident", Action: ActionCreated})

	entries, err := store.Query(ctx, QueryFilter{Entity: "supplier", Action: ActionCreated})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 supplier creation, got %d", len(entries))
	}
}

func TestQuerySinceUntil(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustLog(t, store, Entry{
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
			Entity:     "category",
			Action:     ActionUpdated,
		})
	}

	since := base.Add(2 * time.Minute)
	until := base.Add(3 * time.Minute)
	entries, err := store.Query(ctx, QueryFilter{Since: &since, Until: &until})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries in range, got %d", len(entries))
	}

	n, err := store.Count(ctx, QueryFilter{Since: &since})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("Count since = %d, want 3", n)
	}
}

func TestQueryOrderNewestFirstTiesByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := mustLog(t, store, Entry{OccurredAt: base, Entity: "a", Action: ActionCreated})
	second := mustLog(t, store, Entry{OccurredAt: base, Entity: "b", Action: ActionCreated})
	newest := mustLog(t, store, Entry{OccurredAt: base.Add(time.Second), Entity: "c", Action: ActionCreated})

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []int64{newest, second, first}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("entries[%d].ID = %d, want %d", i, entries[i].ID, id)
		}
	}
}

func TestQueryLimitOffset(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustLog(t, store, Entry{
			OccurredAt: base.Add(time.Duration(i) * time.Second),
			Entity:     "supplier",
			Action:     ActionUpdated,
		})
	}

	entries, err := store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(entries))
	}

	entries, err = store.Query(ctx, QueryFilter{Limit: 2, Offset: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with offset, got %d", len(entries))
	}

	// Offset without limit must still work.
	entries, err = store.Query(ctx, QueryFilter{Offset: 4})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry with bare offset, got %d", len(entries))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustLog(t, store, Entry{
			OccurredAt: base.Add(time.Duration(i) * time.Hour),
			Entity:     "supplier",
			Action:     ActionUpdated,
		})
	}

	deleted, err := store.DeleteBefore(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	n, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 remaining entry, got %d", n)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- HTTP handler tests ---

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestHTTPGetByID(t *testing.T) {
	r, store := setupRouter(t)

	mustLog(t, store, Entry{ActorID: strp("alice"), Entity: "supplier", EntityID: "7", Action: ActionCreated})

	req := httptest.NewRequest(http.MethodGet, "/api/audit/1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("ID = %d, want 1", got.ID)
	}
	if got.ActorID == nil || *got.ActorID != "alice" {
		t.Errorf("ActorID = %v, want alice", got.ActorID)
	}
}

func TestHTTPGetByIDNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{"/api/audit/12", "/api/audit/missing"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want %d", path, rec.Code, http.StatusNotFound)
		}
	}
}

func TestHTTPQueryWithFilter(t *testing.T) {
	r, store := setupRouter(t)

	for _, actor := range []string{"alice", "bob", "alice"} {
		mustLog(t, store, Entry{ActorID: strp(actor), Entity: "incident", Action: ActionUpdated})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit?actor=alice&limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for alice, got %d", len(entries))
	}
}

func TestHTTPQueryEmptyIsArray(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty array", body)
	}
}

func TestHTTPQueryBadParams(t *testing.T) {
	r, _ := setupRouter(t)

	for _, qs := range []string{"since=yesterday", "limit=0", "offset=-1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/audit?"+qs, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", qs, rec.Code, http.StatusBadRequest)
		}
	}
}
