package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/okian/peerscore/internal/domain/types"
)

// Output formats.
const (
	formatTable    = "table"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

func newTable() table.Writer {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)
	return w
}

func render(out io.Writer, w table.Writer, format string) error {
	var s string
	switch format {
	case formatTable, "":
		s = w.Render()
	case formatCSV:
		s = w.RenderCSV()
	case formatMarkdown:
		s = w.RenderMarkdown()
	default:
		return fmt.Errorf("unknown format %q (want table, csv or markdown)", format)
	}
	_, err := fmt.Fprintln(out, s)
	return err
}

// renderResults writes one row per target with a column per criterion. The
// criterion columns come from the first row; every row of one query carries
// the same criteria in the same order.
func renderResults(out io.Writer, rows []types.ResultsRow, format string) error {
	w := newTable()
	header := table.Row{"Name", "Group"}
	if len(rows) > 0 {
		for _, c := range rows[0].Criteria {
			header = append(header, c.Name)
		}
	}
	header = append(header, "Overall", "Evaluations", "Raters", "Anomalies")
	w.AppendHeader(header)

	for _, r := range rows {
		row := table.Row{r.Name, r.Group}
		for _, c := range r.Criteria {
			row = append(row, optional(c.Mean))
		}
		row = append(row, optional(r.OverallMean), r.Evaluations, r.RatersCount, r.AnomalyCount)
		w.AppendRow(row)
	}

	cfgs := make([]table.ColumnConfig, 0, len(header)-2)
	for i := 3; i <= len(header); i++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: i, Align: text.AlignRight})
	}
	w.SetColumnConfigs(cfgs)
	return render(out, w, format)
}

func renderFlags(out io.Writer, flags []types.ScoreFlag, format string) error {
	w := newTable()
	w.AppendHeader(table.Row{"Score", "Rater", "Target", "Criterion", "Value", "Mean", "Z", "Anomaly"})
	for _, f := range flags {
		w.AppendRow(table.Row{
			f.ScoreID,
			f.RaterName,
			f.TargetName,
			f.CriterionName,
			strconv.FormatFloat(f.Value, 'f', -1, 64),
			optional(f.Mean),
			optional(f.Z),
			f.Anomaly,
		})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return render(out, w, format)
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
