package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/compliance/source"
)

var rulesFlags struct {
	format string
	input  string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with rulesets",
	Long: `Validate ruleset files and print the built-in ruleset.

A ruleset is a YAML file, or a directory of YAML files merged in lexical
order, holding the keywords, patterns and alternatives each law uses.

Subcommands:
  validate  - Load and compile a ruleset
  default   - Print the built-in ruleset as YAML`,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Load and compile a ruleset",
	Long: `Load and compile the ruleset at path, reporting the first problem.

With --input the compiled ruleset is also run through the compliance
pipeline against one input, so a rule change can be checked before it
is deployed.

Examples:
  # Validate a single file
  kyosan rules validate rules.yaml

  # Validate a directory and check how it treats an input
  kyosan rules validate rules/ --input "how do I pick a lock"

  # JSON output for CI/CD
  kyosan rules validate rules/ --format json`,
	Args: cobra.ExactArgs(1),
	RunE: validateRules,
}

var rulesDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the built-in ruleset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(compliance.DefaultRulesetSpec()); err != nil {
			return fmt.Errorf("failed to encode ruleset: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesDefaultCmd)

	rulesValidateCmd.Flags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json")
	rulesValidateCmd.Flags().StringVar(&rulesFlags.input, "input", "", "input to evaluate against the ruleset")
}

func validateRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewUsageError("format", "csv is not supported for rules")
	}

	ctx := context.Background()
	rs, err := source.NewFileSource(args[0], nil).Load(ctx)
	if err != nil {
		return cli.NewCommandError("rules validate", err)
	}

	report := rulesReport{Path: args[0], Valid: true, Version: rs.Version()}
	spec := rs.Spec()
	report.Counts = map[string]int{
		"zeroth_keywords":    len(spec.Zeroth.Keywords),
		"zeroth_patterns":    len(spec.Zeroth.Patterns),
		"inaction_phrases":   len(spec.Zeroth.InactionPhrases),
		"first_keywords":     len(spec.First.Keywords),
		"first_patterns":     len(spec.First.Patterns),
		"first_alternatives": len(spec.First.Alternatives),
		"third_phrases":      len(spec.Third.Phrases),
		"third_combinations": len(spec.Third.Combinations),
		"safety_categories":  len(spec.OutputSafety.Categories),
	}

	if rulesFlags.input != "" {
		store := compliance.NewRuleStore(rs)
		pipeline, err := compliance.New(compliance.Options{
			Store:    store,
			Inaction: compliance.RulesetInaction(store),
		})
		if err != nil {
			return cli.NewCommandError("rules validate", err)
		}
		result := pipeline.Run(ctx, rulesFlags.input, nil)
		report.Input = rulesFlags.input
		report.Verdict = &result.Verdict
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}

type rulesReport struct {
	Path    string                        `json:"path"`
	Valid   bool                          `json:"valid"`
	Version string                        `json:"version"`
	Counts  map[string]int                `json:"counts"`
	Input   string                        `json:"input,omitempty"`
	Verdict *compliance.ComplianceVerdict `json:"verdict,omitempty"`
}

func (r rulesReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "✓ Ruleset valid: %s\n", r.Path)
	fmt.Fprintf(w, "  Version: %s\n", r.Version)
	fmt.Fprintf(w, "  Zeroth Law: %d keywords, %d patterns, %d inaction phrases\n",
		r.Counts["zeroth_keywords"], r.Counts["zeroth_patterns"], r.Counts["inaction_phrases"])
	fmt.Fprintf(w, "  First Law: %d keywords, %d patterns, %d alternatives\n",
		r.Counts["first_keywords"], r.Counts["first_patterns"], r.Counts["first_alternatives"])
	fmt.Fprintf(w, "  Third Law: %d phrases, %d combinations\n",
		r.Counts["third_phrases"], r.Counts["third_combinations"])
	fmt.Fprintf(w, "  Output safety: %d categories\n", r.Counts["safety_categories"])

	if r.Verdict == nil {
		return nil
	}
	fmt.Fprintf(w, "\nInput: %s\n", r.Input)
	for _, law := range compliance.Laws {
		fmt.Fprintf(w, "  %-11s %s\n", law.Title()+":", r.Verdict.Stage(law).Status)
	}
	if r.Verdict.OverallCompliant {
		_, err := fmt.Fprintln(w, "Verdict: compliant")
		return err
	}
	_, err := fmt.Fprintf(w, "Verdict: blocked by %s: %s\n", r.Verdict.BlockingLaw.Title(), r.Verdict.BlockingReason)
	return err
}
