package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ziadkadry99/ops-console/internal/db"
)

// Store persists route visits in their own database, independent of the
// audit trail.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record appends a hit and returns its id.
func (s *Store) Record(ctx context.Context, hit Hit) (int64, error) {
	if hit.Route == "" {
		return 0, errors.New("tracking hit requires a route")
	}
	if hit.OccurredAt.IsZero() {
		hit.OccurredAt = time.Now()
	}
	if hit.Method == "" {
		hit.Method = http.MethodGet
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tracking_hits (
			occurred_at, actor_id, session_id, route, method,
			device, browser, ip_address, user_agent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.FormatTime(hit.OccurredAt),
		nullString(hit.ActorID),
		hit.SessionID,
		hit.Route,
		hit.Method,
		nullString(hit.Device),
		nullString(hit.Browser),
		nullString(hit.IPAddress),
		nullString(hit.UserAgent),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting tracking hit: %w", err)
	}
	return res.LastInsertId()
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
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Route != "" {
		clauses = append(clauses, "route = ?")
		args = append(args, f.Route)
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

// Query returns hits matching the filter, newest first, ties by id descending.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Hit, error) {
	where, args := filter.where()
	query := `SELECT id, occurred_at, actor_id, session_id, route, method,
		device, browser, ip_address, user_agent FROM tracking_hits` +
		where + " ORDER BY occurred_at DESC, id DESC"

	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	case filter.Offset > 0:
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tracking hits: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h                                       Hit
			ts                                      string
			actorID, device, browser, ip, userAgent sql.NullString
		)
		if err := rows.Scan(
			&h.ID, &ts, &actorID, &h.SessionID, &h.Route, &h.Method,
			&device, &browser, &ip, &userAgent,
		); err != nil {
			return nil, err
		}
		if h.OccurredAt, err = db.ParseTime(ts); err != nil {
			return nil, fmt.Errorf("tracking hit %d: %w", h.ID, err)
		}
		h.ActorID = stringPtr(actorID)
		h.Device = stringPtr(device)
		h.Browser = stringPtr(browser)
		h.IPAddress = stringPtr(ip)
		h.UserAgent = stringPtr(userAgent)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// Count returns the number of hits matching the filter, ignoring Limit
// and Offset.
func (s *Store) Count(ctx context.Context, filter QueryFilter) (int, error) {
	where, args := filter.where()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tracking_hits"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting tracking hits: %w", err)
	}
	return n, nil
}

// DeleteBefore removes hits older than the given time and returns how
// many were deleted.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM tracking_hits WHERE occurred_at < ?",
		db.FormatTime(before),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old tracking hits: %w", err)
	}
	return res.RowsAffected()
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
