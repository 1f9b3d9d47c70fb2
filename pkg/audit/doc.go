// Package audit records evidence of every orchestrated credit decision.
//
// The Recorder implements orchestrator.Recorder: each composite decision
// becomes a DecisionRecord (UUID, request ID, organization, engines,
// outcome, decline reasons, input hash, optionally redacted input and the
// full decision JSON) queued for an asynchronous write to a Storage.
// Backends live in the storage subpackage (memory and SQLite).
//
// The Pruner enforces retention by age and by record count, and the
// Scheduler runs it on a cron schedule.
package audit
