package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// DefaultLimit is the page size used when a request names none.
const DefaultLimit = 50

// queryParams lists every parameter ParseRequest understands. Anything
// else is an unsupported filter and is rejected.
var queryParams = map[string]bool{
	"page": true, "limit": true, "sources": true,
	"actor": true, "since": true, "window": true,
}

// ParseRequest turns feed query parameters into a Request. Absent
// parameters take their defaults; malformed or unknown ones are rejected
// with a *ValidationError. Range checks are left to Aggregator.Page.
func ParseRequest(q url.Values, defaultLimit int, now time.Time) (Request, error) {
	req := Request{Limit: defaultLimit}

	for name := range q {
		if !queryParams[name] {
			return Request{}, invalid(name, "unsupported parameter")
		}
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Request{}, invalid("page", "not an integer")
		}
		req.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Request{}, invalid("limit", "not an integer")
		}
		req.Limit = n
	}

	if q.Has("sources") {
		for _, part := range strings.Split(q.Get("sources"), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			kind, ok := ParseKind(part)
			if !ok {
				return Request{}, invalid("sources", "unknown source %q", part)
			}
			req.Filter.Kinds = append(req.Filter.Kinds, kind)
		}
		if len(req.Filter.Kinds) == 0 {
			return Request{}, invalid("sources", "must name at least one of audit, tracking")
		}
	}

	if q.Has("actor") {
		actor := q.Get("actor")
		req.Filter.ActorID = &actor
	}

	since, window := q.Get("since"), q.Get("window")
	switch {
	case since != "" && window != "":
		return Request{}, invalid("since", "cannot be combined with window")
	case since != "":
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return Request{}, invalid("since", "expected RFC3339 timestamp")
		}
		req.Filter.Since = &t
	case window != "":
		d, err := time.ParseDuration(window)
		if err != nil || d <= 0 {
			return Request{}, invalid("window", "expected a positive duration such as 24h")
		}
		t := now.Add(-d)
		req.Filter.Since = &t
	}

	return req, nil
}

// RegisterRoutes mounts GET /api/activity on the given router.
func RegisterRoutes(r chi.Router, agg *Aggregator, defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	r.Get("/api/activity", handlePage(agg, defaultLimit))
}

func handlePage(agg *Aggregator, defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := ParseRequest(r.URL.Query(), defaultLimit, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		page, err := agg.Page(r.Context(), req)
		var verr *ValidationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, page)
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, ErrAllSourcesFailed):
			writeError(w, http.StatusBadGateway, err)
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, err)
		case errors.Is(err, context.Canceled):
			// Client went away; nobody is listening.
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
