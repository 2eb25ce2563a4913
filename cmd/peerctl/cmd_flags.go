package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/peerscore/internal/app"
)

type scoreListFlags struct {
	target    int64
	rater     int64
	criterion int64
	all       bool
	limit     int
	offset    int
	format    string
}

func newFlagsCmd(rf *rootFlags) *cobra.Command {
	var f scoreListFlags
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "List anomalous scores with their statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := openService(ctx, rf)
			if err != nil {
				return err
			}
			defer svc.Stop()

			flags, err := svc.ScoreFlags(ctx, service.ScoreFlagQuery{
				TargetID:    f.target,
				RaterID:     f.rater,
				CriterionID: f.criterion,
				AnomalyOnly: !f.all,
				Limit:       f.limit,
				Offset:      f.offset,
			})
			if err != nil {
				return err
			}
			return renderFlags(cmd.OutOrStdout(), flags, f.format)
		},
	}
	fl := cmd.Flags()
	fl.Int64Var(&f.target, "target", 0, "Only scores received by this participant id")
	fl.Int64Var(&f.rater, "rater", 0, "Only scores given by this participant id")
	fl.Int64Var(&f.criterion, "criterion", 0, "Only scores on this criterion id")
	fl.BoolVar(&f.all, "all", false, "Include scores that are not anomalous")
	fl.IntVar(&f.limit, "limit", 0, "Maximum rows (0 for the configured maximum)")
	fl.IntVar(&f.offset, "offset", 0, "Rows to skip")
	fl.StringVar(&f.format, "format", formatTable, "Output format: table, csv or markdown")
	return cmd
}
