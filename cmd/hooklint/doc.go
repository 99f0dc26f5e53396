// Package hooklint provides the command-line interface for hooklint. It wires
// subcommands (scan, rules, baseline, config), parses flags, applies config
// precedence and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/hooklint/hooklint/cmd/hooklint"
//	func main() { hooklint.Execute() }
package hooklint
