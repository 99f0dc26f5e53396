// Package engine runs a rule corpus over syntax trees. ScanTree is the pure
// core for one tree; ScanWithStats discovers tree files under a root, scans
// them in parallel and merges the reports. This package is internal; external
// consumers should use the stable facade in pkg/core.
package engine
