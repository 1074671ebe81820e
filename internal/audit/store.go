package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/ops-console/internal/db"
)

// ErrNotFound is returned by GetByID when no entry has the given id.
var ErrNotFound = errors.New("audit entry not found")

// Store provides read and append operations for audit entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Log appends a new audit entry and returns its id. A zero OccurredAt is
// replaced with the current time.
func (s *Store) Log(ctx context.Context, entry Entry) (int64, error) {
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}
	if entry.Entity == "" {
		return 0, errors.New("audit entry requires an entity")
	}
	if entry.Action == "" {
		return 0, errors.New("audit entry requires an action")
	}

	before, err := snapshot(entry.Before)
	if err != nil {
		return 0, fmt.Errorf("encoding before snapshot: %w", err)
	}
	after, err := snapshot(entry.After)
	if err != nil {
		return 0, fmt.Errorf("encoding after snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			occurred_at, actor_id, entity, entity_id, action,
			before_data, after_data, ip_address, user_agent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.FormatTime(entry.OccurredAt),
		nullString(entry.ActorID),
		entry.Entity,
		entry.EntityID,
		string(entry.Action),
		before,
		after,
		nullString(entry.IPAddress),
		nullString(entry.UserAgent),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting audit entry: %w", err)
	}
	return res.LastInsertId()
}

// GetByID retrieves a single audit entry.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)

	e, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// QueryFilter controls which audit entries are returned by Query and
// counted by Count. Empty fields match everything.
type QueryFilter struct {
	ActorID  string
	Entity   string
	EntityID string
	Action   Action
	Since    *time.Time
	Until    *time.Time
	Limit    int
	Offset   int
}

func (f QueryFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.ActorID != "" {
		clauses = append(clauses, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.Entity != "" {
		clauses = append(clauses, "entity = ?")
		args = append(args, f.Entity)
	}
	if f.EntityID != "" {
		clauses = append(clauses, "entity_id = ?")
		args = append(args, f.EntityID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.Since != nil {
		clauses = append(clauses, "occurred_at >= ?")
		args = append(args, db.FormatTime(*f.Since))
	}
	if f.Until != nil {
		clauses = append(clauses, "occurred_at <= ?")
		args = append(args, db.FormatTime(*f.Until))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

const selectColumns = `SELECT id, occurred_at, actor_id, entity, entity_id, action,
	before_data, after_data, ip_address, user_agent FROM audit_log`

// Query returns audit entries matching the filter, newest first. Entries
// sharing a timestamp are ordered by id descending.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	where, args := filter.where()
	query := selectColumns + where + " ORDER BY occurred_at DESC, id DESC"

	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT clause.
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the filter, ignoring
// Limit and Offset.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int, error) {
	where, args := filter.where()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting audit entries: %w", err)
	}
	return n, nil
}

// DeleteBefore removes all audit entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_log WHERE occurred_at < ?",
		db.FormatTime(before),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old audit entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e                                     Entry
		ts, action                            string
		actorID, before, after, ip, userAgent sql.NullString
	)

	err := sc.Scan(
		&e.ID, &ts, &actorID, &e.Entity, &e.EntityID, &action,
		&before, &after, &ip, &userAgent,
	)
	if err != nil {
		return nil, err
	}

	e.Action = Action(action)
	if e.OccurredAt, err = db.ParseTime(ts); err != nil {
		return nil, fmt.Errorf("audit entry %d: %w", e.ID, err)
	}

	e.ActorID = stringPtr(actorID)
	e.IPAddress = stringPtr(ip)
	e.UserAgent = stringPtr(userAgent)
	if before.Valid {
		e.Before = json.RawMessage(before.String)
	}
	if after.Valid {
		e.After = json.RawMessage(after.String)
	}

	return &e, nil
}

// snapshot validates a before/after payload. Empty and JSON null are
// stored as SQL NULL.
func snapshot(raw json.RawMessage) (sql.NullString, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return sql.NullString{}, nil
	}
	if !json.Valid(raw) {
		return sql.NullString{}, errors.New("snapshot is not valid JSON")
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
