package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/kyosan/pkg/api"
	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/compliance"
	"mercator-hq/kyosan/pkg/orchestrator"
)

var evaluateFlags struct {
	level   string
	format  string
	file    string
	noAI    bool
	context map[string]string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [text]",
	Short: "Evaluate input without starting the server",
	Long: `Run inputs through the compliance pipeline and the analysis systems
and print the result the API would return.

Inputs come from the argument or, with --file, one per line (blank
lines and lines starting with # are skipped).

Examples:
  # Evaluate one input
  kyosan evaluate "What makes a promise binding?"

  # Run every analysis system and print JSON
  kyosan evaluate "What makes a promise binding?" --level detailed --format json

  # Screen a file of inputs without calling the generator
  kyosan evaluate --file inputs.txt --no-ai --format csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: evaluateInputs,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateFlags.level, "level", "", "processing level: basic, standard, detailed (default from config)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json, csv")
	evaluateCmd.Flags().StringVarP(&evaluateFlags.file, "file", "f", "", "file with one input per line")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.noAI, "no-ai", false, "do not call the response generator")
	evaluateCmd.Flags().StringToStringVar(&evaluateFlags.context, "context", nil, "evaluation context as key=value pairs")
}

func evaluateInputs(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evaluateFlags.format)
	if err != nil {
		return err
	}

	inputs, err := readInputs(args, evaluateFlags.file)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	levelName := evaluateFlags.level
	if levelName == "" {
		levelName = cfg.Pipeline.DefaultLevel
	}
	level, err := orchestrator.ParseLevel(levelName)
	if err != nil {
		return cli.NewUsageError("level", err.Error())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	e, err := buildEngine(ctx, cfg, engineOptions{withGenerator: !evaluateFlags.noAI})
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer e.close()

	if evaluateFlags.noAI {
		ctx = compliance.WithoutGeneration(ctx)
	}

	evalCtx := make(map[string]any, len(evaluateFlags.context))
	for k, v := range evaluateFlags.context {
		evalCtx[k] = v
	}

	var progress *cli.Progress
	if len(inputs) > 1 {
		progress = cli.NewProgress(cmd.ErrOrStderr(), "evaluating", int64(len(inputs)))
	}

	results := make(evaluations, 0, len(inputs))
	for _, input := range inputs {
		result := e.orchestrator.Process(ctx, input, evalCtx, level)
		results = append(results, evaluation{
			Input:  input,
			Result: api.NewProcessResponse(result, time.Now()),
		})
		if progress != nil {
			progress.Add(1)
		}
	}
	if progress != nil {
		progress.Done()
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), results)
}

// readInputs returns the argument, or the non-comment lines of file.
func readInputs(args []string, file string) ([]string, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, cli.NewUsageError("file", "cannot be combined with an input argument")
	case file == "":
		if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
			return nil, fmt.Errorf("an input argument or --file is required")
		}
		return args[:1], nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var inputs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs in %s", file)
	}
	return inputs, nil
}

type evaluation struct {
	Input  string               `json:"input"`
	Result *api.ProcessResponse `json:"result"`
}

type evaluations []evaluation

func (es evaluations) WriteText(w io.Writer) error {
	for i, ev := range es {
		if i > 0 {
			fmt.Fprintln(w)
		}
		r := ev.Result
		a := r.Analysis

		fmt.Fprintf(w, "Input: %s\n", ev.Input)
		fmt.Fprintf(w, "Status: %s (%s)\n", r.Status, a.Disposition)
		fmt.Fprintf(w, "Level: %s\n", a.ProcessingLevel)
		if !a.Compliance.OverallCompliant {
			if a.Compliance.Fault {
				fmt.Fprintf(w, "Fault: %s\n", a.Compliance.BlockingReason)
			} else {
				fmt.Fprintf(w, "Blocked by: %s (%s)\n", a.Compliance.BlockingLaw.Title(), a.Compliance.BlockingPhase)
				fmt.Fprintf(w, "Reason: %s\n", a.Compliance.BlockingReason)
			}
		}
		fmt.Fprintf(w, "Active systems: %d\n", a.SystemCount)
		if len(a.Faults) > 0 {
			fmt.Fprintf(w, "Faulted systems: %s\n", strings.Join(a.Faults, ", "))
		}
		if a.RulesetVersion != "" {
			fmt.Fprintf(w, "Ruleset: %s\n", a.RulesetVersion)
		}
		if _, err := fmt.Fprintf(w, "Response:\n%s\n", r.Response); err != nil {
			return err
		}
	}
	return nil
}

func (es evaluations) Header() []string {
	return []string{"input", "status", "disposition", "level", "overall_compliant", "blocking_law", "blocking_reason", "active_systems", "processing_time"}
}

func (es evaluations) Rows() [][]string {
	rows := make([][]string, 0, len(es))
	for _, ev := range es {
		a := ev.Result.Analysis
		law := ""
		if !a.Compliance.OverallCompliant && !a.Compliance.Fault {
			law = a.Compliance.BlockingLaw.String()
		}
		rows = append(rows, []string{
			ev.Input,
			ev.Result.Status,
			a.Disposition,
			a.ProcessingLevel.String(),
			strconv.FormatBool(a.Compliance.OverallCompliant),
			law,
			a.Compliance.BlockingReason,
			strconv.Itoa(a.SystemCount),
			strconv.FormatFloat(ev.Result.ProcessingTime, 'f', 3, 64),
		})
	}
	return rows
}
