// Package match implements the matcher DSL: primitives that inspect one
// syntax node plus its lexical context, boolean combinators over them, and
// the compiler from a rule's matcher_spec YAML to a Matcher.
//
// Matchers are pure. They read the model declarations indexed for the scan
// but never write to the trigger graph; effects are applied by the engine.
// The ORM heuristics they share (registration parsing, receiver
// classification, instance field resolution and trigger targets) live in
// orm.go so the engine can reuse them.
package match
