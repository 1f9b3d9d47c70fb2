package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mercator-hq/underwriter/pkg/audit"
)

// AuditPage is returned by GET /v1/audit.
type AuditPage struct {
	Records []*audit.DecisionRecord `json:"records"`
	Total   int64                   `json:"total"`
	Limit   int                     `json:"limit"`
	Offset  int                     `json:"offset"`
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q, err := parseAuditQuery(r.URL.Query())
	if err == nil {
		err = q.Normalize(s.auditLimits)
	}
	if err != nil {
		var qe *audit.QueryError
		param := ""
		if errors.As(err, &qe) {
			param = qe.Field
		}
		writeError(w, http.StatusBadRequest, newError(err.Error(), ErrorTypeInvalidRequest, param, CodeInvalidValue))
		return
	}

	records, err := s.auditStorage.Query(r.Context(), q)
	if err != nil {
		s.auditFailure(w, r, err)
		return
	}
	total, err := s.auditStorage.Count(r.Context(), q)
	if err != nil {
		s.auditFailure(w, r, err)
		return
	}
	if records == nil {
		records = []*audit.DecisionRecord{}
	}
	writeJSON(w, http.StatusOK, AuditPage{Records: records, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (s *Server) handleAuditGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	record, err := s.auditStorage.Get(r.Context(), id)
	if errors.Is(err, audit.ErrNotFound) {
		writeError(w, http.StatusNotFound, newError("decision record "+id+" not found", ErrorTypeNotFound, "id", ""))
		return
	}
	if err != nil {
		s.auditFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) auditFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "audit query failed", "error", err)
	writeError(w, http.StatusInternalServerError, newError("audit query failed", ErrorTypeServerError, "", CodeInternalError))
}

func parseAuditQuery(v url.Values) (*audit.Query, error) {
	q := &audit.Query{
		RequestID:    v.Get("request_id"),
		Organization: v.Get("organization"),
		Engine:       v.Get("engine"),
		Outcome:      v.Get("outcome"),
		SortOrder:    v.Get("sort_order"),
	}

	var err error
	if q.StartTime, err = parseTime(v, "start_time"); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTime(v, "end_time"); err != nil {
		return nil, err
	}
	if raw := v.Get("passed"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &audit.QueryError{Field: "passed", Message: "must be true or false"}
		}
		q.Passed = &b
	}
	if q.Limit, err = parseInt(v, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = parseInt(v, "offset"); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTime(v url.Values, key string) (*time.Time, error) {
	raw := v.Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, &audit.QueryError{Field: key, Message: "must be an RFC 3339 timestamp"}
	}
	return &t, nil
}

func parseInt(v url.Values, key string) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &audit.QueryError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}
