package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd(rf *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every evaluation and score",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to purge without --yes")
			}
			ctx := cmd.Context()
			svc, err := openService(ctx, rf)
			if err != nil {
				return err
			}
			defer svc.Stop()

			n, err := svc.PurgeEvaluations(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d evaluations\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the purge")
	return cmd
}
