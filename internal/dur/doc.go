// Package dur owns DUR lookup semantics on top of the broker transport.
//
// Ownership boundary:
// - response classification (URL / DATA / ERROR / REJECTED)
// - authorization code extraction
// - lookup and auth-request orchestration
// - dispatch of harness test types, including the legacy bridge
package dur
