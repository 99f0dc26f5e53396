package hooklint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hooklint/hooklint/internal/frontmatter"
	"github.com/hooklint/hooklint/internal/rules"
)

var (
	newRuleDir      string
	newRuleSeverity string
	newRuleEffect   string
)

func init() {
	rulesCmd := &cobra.Command{Use: "rules", Short: "Inspect and author rules"}
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the loaded rules",
		Args:  cobra.NoArgs,
		RunE:  runRulesList,
	})
	rulesCmd.AddCommand(&cobra.Command{
		Use:   "show <key>",
		Short: "Print a rule and its description",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesShow,

		ValidArgsFunction: completeRuleKey,
	})
	rulesCmd.AddCommand(&cobra.Command{
		Use:   "check <dir>",
		Short: "Validate a directory of rule documents against the built-in corpus",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesCheck,
	})
	newCmd := &cobra.Command{
		Use:   "new <key>",
		Short: "Write a rule document skeleton",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesNew,
	}
	newCmd.Flags().StringVar(&newRuleDir, "dir", ".hooklint/rules", "directory to write the rule into")
	newCmd.Flags().StringVar(&newRuleSeverity, "severity", "warning", "info|warning|critical")
	newCmd.Flags().StringVar(&newRuleEffect, "effect", "report", "report|bind|trigger|cascade")
	rulesCmd.AddCommand(newCmd)
}

func loadCorpus() (*rules.Corpus, settings, error) {
	s, err := loadSettings(".")
	if err != nil {
		return nil, s, err
	}
	c, err := s.corpus(s.logger(), "", "")
	return c, s, err
}

func runRulesList(cmd *cobra.Command, _ []string) error {
	c, _, err := loadCorpus()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ruleMetas(c))
	}
	table := tablewriter.NewWriter(w)
	table.Header("KEY", "SEVERITY", "EFFECT", "TITLE")
	for _, r := range c.Rules() {
		if err := table.Append([]string{r.Key, string(r.Severity), string(r.Effect), r.Title}); err != nil {
			return err
		}
	}
	return table.Render()
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	c, s, err := loadCorpus()
	if err != nil {
		return err
	}
	r := c.Rule(args[0])
	if r == nil {
		return fmt.Errorf("unknown rule %q", args[0])
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s  [%s, %s, %s]\n", r.Key, r.Severity, r.Category, r.Effect)
	if r.Title != "" {
		fmt.Fprintln(w, r.Title)
	}
	fmt.Fprintf(w, "matcher: %s\n", r.Matcher)
	fmt.Fprintf(w, "visits: %s\n", visitedKinds(r))
	if r.Requires != "" {
		fmt.Fprintf(w, "requires: %s\n", r.Requires)
	}
	fmt.Fprintf(w, "source: %s\n", r.Source)
	if r.Remediation != "" {
		fmt.Fprintf(w, "remediation: %s\n", r.Remediation)
	}
	body := strings.TrimSpace(r.Body)
	if body == "" {
		return nil
	}
	fmt.Fprintln(w)
	if !s.noColor() {
		body = highlightMarkdown(body)
	}
	fmt.Fprintln(w, body)
	return nil
}

// visitedKinds names the node kinds a rule is evaluated on.
func visitedKinds(r *rules.Rule) string {
	if r.IsGraph() {
		return "trigger-graph cycles"
	}
	ks := r.Matcher.Kinds()
	if ks == nil {
		return "any node"
	}
	names := make([]string, 0, len(ks))
	for _, k := range ks.List() {
		names = append(names, string(k))
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

// highlightMarkdown colors a rule description for a 256-color terminal and
// returns it unchanged when highlighting fails.
func highlightMarkdown(text string) string {
	lexer := lexers.Get("markdown")
	if lexer == nil {
		return text
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		return text
	}
	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return text
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	extra, err := rules.ReadDir(args[0])
	if err != nil {
		return err
	}
	s, err := loadSettings(".")
	if err != nil {
		return err
	}
	c, err := rules.Load(append(rules.BuiltinSources(), extra...), rules.Options{Version: version, Logger: s.logger()})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d rules in %s (%d total, fingerprint %s)\n", len(extra), args[0], c.Len(), c.Fingerprint())
	return nil
}

// ruleSkeleton is the frontmatter written by "rules new".
type ruleSkeleton struct {
	Key         string         `yaml:"key"`
	Title       string         `yaml:"title"`
	Severity    string         `yaml:"severity"`
	Type        string         `yaml:"type"`
	Effect      string         `yaml:"effect,omitempty"`
	Message     string         `yaml:"message,omitempty"`
	Remediation string         `yaml:"remediation,omitempty"`
	Requires    string         `yaml:"requires"`
	MatcherSpec map[string]any `yaml:"matcher_spec"`
}

func runRulesNew(cmd *cobra.Command, args []string) error {
	key := args[0]
	sk := ruleSkeleton{
		Key:      key,
		Title:    strings.ReplaceAll(key, "-", " "),
		Severity: newRuleSeverity,
		Type:     "antipattern",
		Requires: ">=" + version,
		MatcherSpec: map[string]any{
			"all-of": []any{
				map[string]any{"within-handler-of": "any"},
				map[string]any{"call-name-is": "save"},
			},
		},
	}
	if newRuleEffect != "report" {
		sk.Effect = newRuleEffect
	} else {
		sk.Message = "{handler} calls {call}()"
		sk.Remediation = "Describe the fix."
	}
	data, err := frontmatter.Write(sk, "\nDescribe what the rule detects and why it matters.\n")
	if err != nil {
		return err
	}
	// Reject a bad --severity or --effect before touching the disk.
	if _, err := rules.Load([]rules.Source{{Name: key + ".md", Data: data}}, rules.Options{}); err != nil {
		return err
	}
	if err := os.MkdirAll(newRuleDir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(newRuleDir, key+".md")
	if _, err := os.Stat(p); err == nil {
		return fmt.Errorf("%s already exists", p)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", p)
	return nil
}

