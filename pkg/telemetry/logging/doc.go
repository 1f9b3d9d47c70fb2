// Package logging builds the service's *slog.Logger.
//
// The handler returned by New adds request-scoped fields stored in the
// context (request ID, organization, engine, application ID, and the
// active trace and span IDs) and masks applicant PII before records reach
// the JSON or text handler:
//
//   - SSN: 123-45-6789 becomes ***-**-****
//   - Card numbers keep their last four digits
//   - Emails keep the first character and the domain
//   - Keys such as ssn, dob or account_number are masked outright
//
// Usage:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "decision complete", "outcome", "pass")
package logging
