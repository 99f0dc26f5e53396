// Package report aggregates scan findings into a deduplicated, ordered
// sequence and renders them as a table, text, JSON or SARIF. It also keeps
// the baseline of accepted findings used to report only new ones.
package report
