package audit_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"mercator-hq/underwriter/pkg/audit"
	"mercator-hq/underwriter/pkg/audit/storage"
	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/telemetry/logging"
)

func declined() *orchestrator.CompositeDecision {
	return &orchestrator.CompositeDecision{
		Passed:         false,
		DeclineReasons: []string{"personal_loan minimum age"},
		Requirements:   map[string]orchestrator.RequirementStatus{"personal_loan": {Passed: false}},
		CreditProcess: map[string]*orchestrator.EngineDecision{
			"personal_loan": {
				Engine:       "personal_loan",
				Organization: "acme",
				SegmentIDs:   []string{"pl-1"},
				Decision: &pipeline.Decision{
					Kind:           pipeline.OutcomeDecline,
					Passed:         false,
					DeclineReasons: []string{"personal_loan minimum age"},
				},
			},
		},
		OutputVariables: map[string]any{},
		Engines:         []string{"personal_loan"},
	}
}

type writeCounter struct {
	mu       sync.Mutex
	statuses map[string]int
}

func (w *writeCounter) ObserveAuditWrite(status string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.statuses == nil {
		w.statuses = map[string]int{}
	}
	w.statuses[status]++
}

func (w *writeCounter) count(status string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.statuses[status]
}

func TestRecorder_RecordDecision(t *testing.T) {
	store := storage.NewMemoryStorage()
	redactor, err := logging.NewRedactor(nil)
	if err != nil {
		t.Fatal(err)
	}
	obs := &writeCounter{}
	rec := audit.NewRecorder(store, audit.RecorderConfig{}, audit.WithRedactor(redactor), audit.WithWriteObserver(obs))

	input := map[string]any{"age": 17.0, "ssn": "123-45-6789"}
	ctx := logging.WithRequestID(context.Background(), "req-42")
	rec.RecordDecision(ctx, input, declined())
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := store.Query(context.Background(), &audit.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("stored %d records, want 1", len(got))
	}
	r := got[0]
	if r.ID == "" || r.RequestID != "req-42" || r.Organization != "acme" {
		t.Errorf("identifiers = %q %q %q", r.ID, r.RequestID, r.Organization)
	}
	if r.Outcome != "decline" || r.Passed {
		t.Errorf("outcome = %q passed = %v", r.Outcome, r.Passed)
	}
	if r.Input["ssn"] != "***" || r.Input["age"] != 17.0 {
		t.Errorf("stored input = %v", r.Input)
	}
	if r.InputHash != audit.HashInput(input) {
		t.Error("input hash not computed over the original record")
	}
	if input["ssn"] != "123-45-6789" {
		t.Error("recorder modified the caller's record")
	}

	var decision map[string]any
	if err := json.Unmarshal(r.Decision, &decision); err != nil {
		t.Fatalf("decision JSON: %v", err)
	}
	if decision["passed"] != false {
		t.Errorf("decision = %v", decision)
	}
	if obs.count(audit.WriteStored) != 1 {
		t.Errorf("stored writes = %d, want 1", obs.count(audit.WriteStored))
	}
}

func TestRecorder_AfterClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	obs := &writeCounter{}
	rec := audit.NewRecorder(store, audit.RecorderConfig{AsyncBuffer: 1}, audit.WithWriteObserver(obs))
	rec.Close()
	rec.Close()

	rec.RecordDecision(context.Background(), map[string]any{}, declined())
	if obs.count(audit.WriteDropped) != 1 {
		t.Errorf("dropped = %d, want 1", obs.count(audit.WriteDropped))
	}
	if n, _ := store.Count(context.Background(), nil); n != 0 {
		t.Errorf("stored %d records after close", n)
	}
}

type failingStorage struct{ *storage.MemoryStorage }

func (failingStorage) Store(context.Context, *audit.DecisionRecord) error {
	return errors.New("disk full")
}

func TestRecorder_StoreFailure(t *testing.T) {
	obs := &writeCounter{}
	rec := audit.NewRecorder(failingStorage{storage.NewMemoryStorage()}, audit.RecorderConfig{}, audit.WithWriteObserver(obs))
	rec.RecordDecision(context.Background(), map[string]any{"age": 30}, declined())
	rec.Close()
	if obs.count(audit.WriteFailed) != 1 {
		t.Errorf("failed writes = %d, want 1", obs.count(audit.WriteFailed))
	}
}

type pruneCounter struct{ total int64 }

func (p *pruneCounter) ObserveAuditPrune(n int64) { p.total += n }

func seedAt(t *testing.T, s audit.Storage, times ...time.Time) {
	t.Helper()
	for i, at := range times {
		r := &audit.DecisionRecord{
			ID:         string(rune('a' + i)),
			Engines:    []string{"personal_loan"},
			Outcome:    "pass",
			Passed:     true,
			RecordedAt: at,
		}
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	now := time.Now().UTC()
	day := 24 * time.Hour

	tests := []struct {
		name        string
		config      audit.RetentionConfig
		times       []time.Time
		wantDeleted int64
		wantLeft    int64
	}{
		{
			name:        "by age",
			config:      audit.RetentionConfig{Days: 30},
			times:       []time.Time{now.Add(-40 * day), now.Add(-31 * day), now.Add(-day)},
			wantDeleted: 2,
			wantLeft:    1,
		},
		{
			name:        "by count",
			config:      audit.RetentionConfig{MaxRecords: 2},
			times:       []time.Time{now.Add(-3 * time.Hour), now.Add(-2 * time.Hour), now.Add(-time.Hour), now},
			wantDeleted: 2,
			wantLeft:    2,
		},
		{
			name:        "keep forever",
			config:      audit.RetentionConfig{},
			times:       []time.Time{now.Add(-400 * day)},
			wantDeleted: 0,
			wantLeft:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			seedAt(t, s, tt.times...)
			obs := &pruneCounter{}

			deleted, err := audit.NewPruner(s, tt.config, nil, obs).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() error = %v", err)
			}
			if deleted != tt.wantDeleted || obs.total != tt.wantDeleted {
				t.Errorf("deleted = %d (observed %d), want %d", deleted, obs.total, tt.wantDeleted)
			}
			if left, _ := s.Count(context.Background(), nil); left != tt.wantLeft {
				t.Errorf("left = %d, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestScheduler(t *testing.T) {
	s := storage.NewMemoryStorage()

	bad := audit.NewScheduler(audit.NewPruner(s, audit.RetentionConfig{PruneSchedule: "not a schedule"}, nil, nil))
	if err := bad.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}

	none := audit.NewScheduler(audit.NewPruner(s, audit.RetentionConfig{}, nil, nil))
	if err := none.Start(context.Background()); err != nil || none.IsRunning() {
		t.Errorf("empty schedule: err = %v running = %v", err, none.IsRunning())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched := audit.NewScheduler(audit.NewPruner(s, audit.RetentionConfig{Days: 1, PruneSchedule: "0 3 * * *"}, nil, nil))
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !sched.IsRunning() || sched.NextRun() == nil {
		t.Error("scheduler not running after Start")
	}
	sched.Stop()
	if sched.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
}

func TestQuery_Normalize(t *testing.T) {
	limits := audit.Limits{DefaultLimit: 100, MaxLimit: 500}
	start := time.Now()
	before := start.Add(-time.Hour)

	tests := []struct {
		name    string
		query   audit.Query
		wantErr string
	}{
		{"defaults", audit.Query{}, ""},
		{"negative limit", audit.Query{Limit: -1}, "limit"},
		{"too large", audit.Query{Limit: 501}, "limit"},
		{"negative offset", audit.Query{Offset: -5}, "offset"},
		{"bad outcome", audit.Query{Outcome: "maybe"}, "outcome"},
		{"bad order", audit.Query{SortOrder: "sideways"}, "sort_order"},
		{"inverted range", audit.Query{StartTime: &start, EndTime: &before}, "end_time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			err := q.Normalize(limits)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Normalize() error = %v", err)
				}
				if q.Limit != 100 || q.SortOrder != audit.SortDesc {
					t.Errorf("defaults not applied: %+v", q)
				}
				return
			}
			var qe *audit.QueryError
			if !errors.As(err, &qe) || qe.Field != tt.wantErr {
				t.Errorf("Normalize() error = %v, want field %s", err, tt.wantErr)
			}
		})
	}
}

func TestExporters(t *testing.T) {
	records := []*audit.DecisionRecord{{
		ID:             "r1",
		RequestID:      "req-1",
		Organization:   "acme",
		Engines:        []string{"personal_loan", "auto_loan"},
		Outcome:        "decline",
		DeclineReasons: []string{"too young"},
		RecordedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var jsonBuf bytes.Buffer
	exp, err := audit.NewExporter("json")
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Export(context.Background(), records, &jsonBuf); err != nil {
		t.Fatalf("JSON Export() error = %v", err)
	}
	var decoded []audit.DecisionRecord
	if err := json.Unmarshal(jsonBuf.Bytes(), &decoded); err != nil || len(decoded) != 1 || decoded[0].ID != "r1" {
		t.Errorf("JSON round trip = %v, %v", decoded, err)
	}

	var csvBuf bytes.Buffer
	exp, _ = audit.NewExporter("csv")
	if err := exp.Export(context.Background(), records, &csvBuf); err != nil {
		t.Fatalf("CSV Export() error = %v", err)
	}
	rows, err := csv.NewReader(&csvBuf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][3] != "personal_loan;auto_loan" || rows[1][8] != "2026-01-02T03:04:05Z" {
		t.Errorf("CSV rows = %v", rows)
	}

	if _, err := audit.NewExporter("xml"); err == nil {
		t.Error("NewExporter(xml) should fail")
	}
}

func TestHashInput(t *testing.T) {
	a := audit.HashInput(map[string]any{"a": 1, "b": "x"})
	b := audit.HashInput(map[string]any{"b": "x", "a": 1})
	if a == "" || a != b {
		t.Errorf("hashes differ for equal records: %q %q", a, b)
	}
	if audit.HashInput(nil) != "" {
		t.Error("empty record should hash to empty string")
	}
}
