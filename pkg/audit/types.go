package audit

import (
	"context"
	"encoding/json"
	"slices"
	"time"
)

// DecisionRecord is the persisted evidence of one orchestrated evaluation.
type DecisionRecord struct {
	ID             string          `json:"id"`
	RequestID      string          `json:"request_id"`
	Organization   string          `json:"organization"`
	Engines        []string        `json:"engines"`
	Outcome        string          `json:"outcome"`
	Passed         bool            `json:"passed"`
	DeclineReasons []string        `json:"decline_reasons"`
	InputHash      string          `json:"input_hash"`
	Input          map[string]any  `json:"input"`
	Decision       json.RawMessage `json:"decision"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

// Sort orders for Query.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Query filters decision records. Zero fields do not filter.
type Query struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	RequestID    string `json:"request_id,omitempty"`
	Organization string `json:"organization,omitempty"`
	Engine       string `json:"engine,omitempty"`
	Outcome      string `json:"outcome,omitempty"`
	Passed       *bool  `json:"passed,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by recorded time, newest first by default.
	SortOrder string `json:"sort_order,omitempty"`
}

// Matches reports whether r satisfies the filter fields of q. Limit, offset
// and ordering are applied by the storage backend.
func (q *Query) Matches(r *DecisionRecord) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && r.RecordedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.RecordedAt.After(*q.EndTime) {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Organization != "" && r.Organization != q.Organization {
		return false
	}
	if q.Engine != "" && !slices.Contains(r.Engines, q.Engine) {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.Passed != nil && r.Passed != *q.Passed {
		return false
	}
	return true
}

// Storage persists decision records.
type Storage interface {
	Store(ctx context.Context, record *DecisionRecord) error
	Get(ctx context.Context, id string) (*DecisionRecord, error)
	Query(ctx context.Context, query *Query) ([]*DecisionRecord, error)
	Count(ctx context.Context, query *Query) (int64, error)
	// Delete removes records matching the filter fields of query.
	Delete(ctx context.Context, query *Query) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}
