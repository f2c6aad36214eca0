package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mercator-hq/kyosan/pkg/cli"
	"mercator-hq/kyosan/pkg/plugins"
)

var systemsFlags struct {
	status string
	format string
}

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "List the analysis systems",
	Long: `List every registered analysis system with its load status and
capability, as the /api/systems endpoint reports them.

Examples:
  # All systems
  kyosan systems

  # Only the ones that loaded
  kyosan systems --status active --format json`,
	RunE: listSystems,
}

func init() {
	rootCmd.AddCommand(systemsCmd)

	systemsCmd.Flags().StringVar(&systemsFlags.status, "status", "", "only list systems with this status")
	systemsCmd.Flags().StringVar(&systemsFlags.format, "format", "text", "output format: text, json, csv")
}

func listSystems(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(systemsFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	e, err := buildEngine(context.Background(), cfg, engineOptions{})
	if err != nil {
		return cli.NewCommandError("systems", err)
	}
	defer e.close()

	list := systemList{Systems: make([]plugins.Record, 0, e.registry.Len())}
	for _, rec := range e.registry.Records() {
		if systemsFlags.status != "" && string(rec.Status) != systemsFlags.status {
			continue
		}
		list.Systems = append(list.Systems, rec)
	}
	list.Total = e.registry.Len()
	list.Active = e.registry.Counts()[plugins.StatusActive]

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), list)
}

type systemList struct {
	Total   int              `json:"total_systems"`
	Active  int              `json:"active_systems"`
	Systems []plugins.Record `json:"systems"`
}

func (l systemList) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Systems: %d total, %d active\n\n", l.Total, l.Active)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tCAPABILITY\tDESCRIPTION")
	for _, rec := range l.Systems {
		desc := rec.Description
		if rec.Error != "" {
			desc = rec.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rec.Name, rec.Status, rec.Capability.String(), desc)
	}
	return tw.Flush()
}

func (l systemList) Header() []string {
	return []string{"name", "status", "capability", "description", "error"}
}

func (l systemList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Systems))
	for _, rec := range l.Systems {
		rows = append(rows, []string{rec.Name, string(rec.Status), rec.Capability.String(), rec.Description, rec.Error})
	}
	return rows
}
