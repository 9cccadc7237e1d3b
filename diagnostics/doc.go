// Package diagnostics provides health, staleness and consistency checks
// over the graph store, embedding store, registry and cache layer.
//
// Each component is probed independently: a down component yields a
// degraded report rather than a failure of the check itself. Staleness
// compares the last successful ingestion against an operator-configured
// threshold, prompting re-ingestion without forcing it. Consistency
// cross-validates the graph and embedding stores and can self-heal by
// regenerating the missing side from the present side where possible.
package diagnostics
