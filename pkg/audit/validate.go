package audit

// Limits bound the page size of queries.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Normalize validates q against l and fills the default limit and order.
func (q *Query) Normalize(l Limits) error {
	if q.Limit < 0 {
		return &QueryError{Field: "limit", Message: "must not be negative"}
	}
	if q.Offset < 0 {
		return &QueryError{Field: "offset", Message: "must not be negative"}
	}
	if q.StartTime != nil && q.EndTime != nil && q.EndTime.Before(*q.StartTime) {
		return &QueryError{Field: "end_time", Message: "is before start_time"}
	}
	switch q.Outcome {
	case "", "pass", "decline", "fault":
	default:
		return &QueryError{Field: "outcome", Message: "must be pass, decline or fault"}
	}
	switch q.SortOrder {
	case "":
		q.SortOrder = SortDesc
	case SortAsc, SortDesc:
	default:
		return &QueryError{Field: "sort_order", Message: "must be asc or desc"}
	}

	if q.Limit == 0 {
		q.Limit = l.DefaultLimit
	}
	if l.MaxLimit > 0 && q.Limit > l.MaxLimit {
		return &QueryError{Field: "limit", Message: "exceeds the maximum page size"}
	}
	return nil
}
