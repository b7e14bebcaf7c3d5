// Package metrics exposes Prometheus collectors for the sandbox.
//
// Metrics implements sandbox.Recorder, counting executions per language and
// outcome, timing them, tracking how many are in flight and counting forced
// process-tree kills.
package metrics
