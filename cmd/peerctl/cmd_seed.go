package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/peerscore/internal/app"
	"github.com/okian/peerscore/internal/seed"
)

type seedFlags struct {
	file          string
	participants  int
	raters        int
	outlierRate   float64
	freeTextEvery int
	workers       int
	show          bool
	format        string
}

func newSeedCmd(rf *rootFlags) *cobra.Command {
	var sf seedFlags
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture or synthetic evaluations into the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, rf, &sf)
		},
	}
	def := seed.DefaultGeneratorConfig()
	f := cmd.Flags()
	f.StringVarP(&sf.file, "file", "f", "", "YAML fixture file; when empty a synthetic fixture is generated")
	f.IntVar(&sf.participants, "participants", def.Participants, "Generated participants")
	f.IntVar(&sf.raters, "raters", def.RatersPerTarget, "Generated raters per target")
	f.Float64Var(&sf.outlierRate, "outliers", def.OutlierRate, "Probability of an outlying generated score")
	f.IntVar(&sf.freeTextEvery, "free-text-every", def.FreeTextEvery, "Address every nth generated target by name (0 disables)")
	f.IntVar(&sf.workers, "workers", runtime.NumCPU(), "Concurrent submissions")
	f.BoolVar(&sf.show, "show", false, "Print the global results table after seeding")
	f.StringVar(&sf.format, "format", formatTable, "Output format for --show: table, csv or markdown")
	return cmd
}

func runSeed(cmd *cobra.Command, rf *rootFlags, sf *seedFlags) error {
	var (
		fixture *seed.Fixture
		err     error
	)
	if sf.file != "" {
		fixture, err = seed.Load(sf.file)
	} else {
		fixture, err = seed.Generate(seed.GeneratorConfig{
			Participants:    sf.participants,
			RatersPerTarget: sf.raters,
			OutlierRate:     sf.outlierRate,
			FreeTextEvery:   sf.freeTextEvery,
		})
	}
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := openService(ctx, rf)
	if err != nil {
		return err
	}
	defer svc.Stop()

	rep, err := seed.Apply(ctx, svc, fixture, sf.workers)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "participants: %d  events: %d  criteria: %d\n", rep.Participants, rep.Events, rep.Criteria)
	fmt.Fprintf(out, "evaluations:  %d submitted, %d created, %d updated, %d rejected in %s\n",
		rep.Submitted, rep.Created, rep.Updated, rep.Failed, rep.Duration.Round(time.Millisecond))

	if !sf.show {
		return nil
	}
	rows, err := svc.Results(ctx, service.ResultsQuery{Sort: service.SortOverall, Desc: true})
	if err != nil {
		return err
	}
	return renderResults(out, rows, sf.format)
}
