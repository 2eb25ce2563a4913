package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/peerscore/internal/app"
)

type resultsFlags struct {
	event  int64
	name   string
	group  string
	sort   string
	desc   bool
	format string
}

func newResultsCmd(rf *rootFlags) *cobra.Command {
	var f resultsFlags
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print the per-target results table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx, rf)
			if err != nil {
				return err
			}
			defer svc.Stop()

			rows, err := svc.Results(ctx, service.ResultsQuery{
				EventID: f.event,
				Name:    f.name,
				Group:   f.group,
				Sort:    f.sort,
				Desc:    f.desc,
			})
			if err != nil {
				return err
			}
			return renderResults(cmd.OutOrStdout(), rows, f.format)
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&f.event, "event", 0, "Event id (0 for unscoped evaluations)")
	fl.StringVar(&f.name, "name", "", "Filter by target name substring")
	fl.StringVar(&f.group, "group", "", "Filter by group substring")
	fl.StringVar(&f.sort, "sort", service.SortName, "Sort key: name, overall, anomalies or raters")
	fl.BoolVar(&f.desc, "desc", false, "Sort descending")
	fl.StringVar(&f.format, "format", formatTable, "Output format: table, csv or markdown")
	return cmd
}
