package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/telemetry/logging"
)

// Write statuses reported to the observer.
const (
	WriteStored  = "stored"
	WriteFailed  = "failed"
	WriteDropped = "dropped"
)

// RecorderConfig contains configuration for the Recorder.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write queue.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{AsyncBuffer: 1000, WriteTimeout: 5 * time.Second}
}

// WriteObserver receives the status of each record write.
type WriteObserver interface {
	ObserveAuditWrite(status string)
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the recorder logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithWriteObserver sets the observer notified of each write.
func WithWriteObserver(o WriteObserver) RecorderOption {
	return func(r *Recorder) { r.observer = o }
}

// WithRedactor masks applicant PII in the stored input. The input hash is
// always computed over the unredacted record.
func WithRedactor(red *logging.Redactor) RecorderOption {
	return func(r *Recorder) { r.redactor = red }
}

// Recorder persists composite decisions asynchronously. It implements
// orchestrator.Recorder; RecordDecision never waits on storage.
type Recorder struct {
	storage  Storage
	config   RecorderConfig
	queue    chan *DecisionRecord
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	logger   *slog.Logger
	observer WriteObserver
	redactor *logging.Redactor
	now      func() time.Time
}

var _ orchestrator.Recorder = (*Recorder)(nil)

// NewRecorder starts a recorder writing to storage.
func NewRecorder(storage Storage, cfg RecorderConfig, opts ...RecorderOption) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = def.AsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		queue:   make(chan *DecisionRecord, cfg.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "audit.recorder")

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// RecordDecision builds a DecisionRecord and queues it. A full queue drops
// the record with an error log rather than delaying the caller.
func (r *Recorder) RecordDecision(ctx context.Context, rec map[string]any, d *orchestrator.CompositeDecision) {
	record := r.newRecord(ctx, rec, d)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.logger.WarnContext(ctx, "recorder closed, dropping decision record", "record_id", record.ID)
		r.observe(WriteDropped)
		return
	}

	select {
	case r.queue <- record:
	default:
		r.logger.ErrorContext(ctx, "audit queue full, dropping decision record",
			"record_id", record.ID,
			"queue_capacity", r.config.AsyncBuffer,
		)
		r.observe(WriteDropped)
	}
}

func (r *Recorder) newRecord(ctx context.Context, rec map[string]any, d *orchestrator.CompositeDecision) *DecisionRecord {
	record := &DecisionRecord{
		ID:             uuid.NewString(),
		RequestID:      logging.GetRequestID(ctx),
		Organization:   logging.GetOrganization(ctx),
		Engines:        append([]string(nil), d.Engines...),
		Outcome:        d.Outcome(),
		Passed:         d.Passed,
		DeclineReasons: append([]string(nil), d.DeclineReasons...),
		InputHash:      HashInput(rec),
		Input:          rec,
		RecordedAt:     r.now().UTC(),
	}
	if r.redactor != nil {
		record.Input = r.redactor.RedactMap(rec)
	}
	if record.Organization == "" && len(d.Engines) > 0 {
		if ed := d.CreditProcess[d.Engines[0]]; ed != nil {
			record.Organization = ed.Organization
		}
	}

	decision, err := json.Marshal(d)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to encode decision for audit", "error", err)
	} else {
		record.Decision = decision
	}
	return record
}

// Close stops accepting records, drains the queue and waits for the writes.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("audit recorder shut down")
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for {
		select {
		case record := <-r.queue:
			r.write(record)
		case <-r.done:
			for {
				select {
				case record := <-r.queue:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		r.observe(WriteFailed)
		return
	}
	r.observe(WriteStored)
}

func (r *Recorder) observe(status string) {
	if r.observer != nil {
		r.observer.ObserveAuditWrite(status)
	}
}
