// Package rules loads the rule corpus: Markdown documents whose YAML
// frontmatter carries a rule's key, severity, category, effect and
// matcher_spec. The built-in corpus is embedded in the binary; project rule
// directories are appended after it.
//
// A Corpus never changes after Load returns and is safe to share between
// concurrent scans.
package rules
