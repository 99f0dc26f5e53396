// Package graph maintains the per-scan trigger graph: ORM model declarations,
// signal handler bindings, and directed edges between (model, lifecycle
// phase) vertices meaning "work done while this model is saved or deleted
// saves or deletes that model". Cycle detection over the graph finds
// save/delete cascades that re-enter themselves before any code runs.
//
// A Builder is created per scan, written only through append operations, and
// dropped when the scan completes. Nothing persists across scans.
package graph
