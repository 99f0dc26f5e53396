package hooklint

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var completionScripts = map[string]func(io.Writer) error{
	"bash":       rootCmd.GenBashCompletion,
	"zsh":        rootCmd.GenZshCompletion,
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": rootCmd.GenPowerShellCompletionWithDesc,
}

func init() {
	shells := make([]string, 0, len(completionScripts))
	for sh := range completionScripts {
		shells = append(shells, sh)
	}
	sort.Strings(shells)

	cmd := &cobra.Command{
		Use:   "completion [" + strings.Join(shells, "|") + "]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for hooklint.

Besides subcommands and flags, the scripts complete rule keys for
"rules show" and for the --enable and --disable flags of "scan".`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: shells,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := completionScripts[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
			return gen(cmd.OutOrStdout())
		},
		Example: `
# Bash
hooklint completion bash > /etc/bash_completion.d/hooklint

# Zsh
hooklint completion zsh > "${fpath[1]}/_hooklint"

# Fish
hooklint completion fish > ~/.config/fish/completions/hooklint.fish

# PowerShell
hooklint completion powershell > $PROFILE\hooklint.ps1
`,
	}
	rootCmd.AddCommand(cmd)
}

// completeRuleKey offers the keys of the loaded rules, described by their
// titles.
func completeRuleKey(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	keys, err := ruleCompletions("", toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return keys, cobra.ShellCompDirectiveNoFileComp
}

// completeRuleList completes the last key of a comma-separated list. Keys
// already in the list are not offered again.
func completeRuleList(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	keys, err := ruleCompletions(prefix, toComplete)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return keys, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func ruleCompletions(prefix, toComplete string) ([]string, error) {
	c, _, err := loadCorpus()
	if err != nil {
		return nil, err
	}
	typed := map[string]bool{}
	for _, k := range strings.Split(prefix, ",") {
		typed[strings.TrimSpace(k)] = true
	}
	var out []string
	for _, r := range c.Rules() {
		if typed[r.Key] || !strings.HasPrefix(prefix+r.Key, toComplete) {
			continue
		}
		out = append(out, prefix+r.Key+"\t"+r.Title)
	}
	return out, nil
}
