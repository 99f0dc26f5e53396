// Package core provides a small, stable facade over hooklint's internal
// engine for external integrations such as editor plugins and CI wrappers.
//
// Example:
//
//	findings, err := core.Scan(ctx, core.Config{Root: "."})
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, findings)
package core
