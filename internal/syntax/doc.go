// Package syntax defines the read-only syntax tree hooklint consumes from an
// external parser, JSON decoding of tree dumps, and small navigation helpers
// (callee names, receivers, attribute chains) used by matchers.
package syntax
