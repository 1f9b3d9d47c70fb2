// Package health provides the liveness and readiness endpoints.
//
// Liveness always succeeds while the process serves HTTP. Readiness runs
// the registered checks concurrently, each bounded by the check timeout;
// the underwriter registers EnginesLoaded for the compiled strategy set
// and Ping for the audit store.
package health
