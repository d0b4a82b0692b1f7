package main

import (
	"fmt"
	"math"
	"strings"

	"tfbpdash/adapters/excel"
	"tfbpdash/domain/metadata"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/internal/correlation"
	"tfbpdash/internal/distribution"
	apperrors "tfbpdash/internal/errors"
	"tfbpdash/internal/intersection"
	"tfbpdash/internal/sourcename"

	"github.com/spf13/cobra"
)

func newRankResponseCmd(rt *session) *cobra.Command {
	var ceiling int
	var key string
	var out string

	cmd := &cobra.Command{
		Use:   "rank-response [workbook]",
		Short: "Compute rank-response series for every replicate in a workbook",
		Long: `Compute rank-response series for every replicate in a workbook, grouped by
expression condition, and print the bundle as JSON.

With --key only the named gene table is analysed and its rank-response rows
are printed. With --out the rows are also written to an .xlsx workbook, one
sheet per replicate.

Example: rankresponse rank-response data.xlsx --ceiling 100 --out rr.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := excel.NewWorkbookReader(args[0], rt.Logger).ReadWorkbook()
			if err != nil {
				return apperrors.Wrap(err, "failed to read workbook")
			}
			if !cmd.Flags().Changed("ceiling") {
				ceiling = rt.Config.Analysis.RankCeiling
			}

			if key != "" {
				records, ok := wb.Raw[key]
				if !ok {
					return apperrors.NotFound("gene table " + key)
				}
				rows, err := rt.Engine.ComputeRankResponse(records, rt.Config.Analysis.Options())
				if err != nil {
					return apperrors.Wrapf(err, "rank response for %s", key)
				}
				if out != "" {
					if err := excel.WriteRankResponse(out, []excel.Table{{Name: key, Rows: rows}}); err != nil {
						return apperrors.Wrap(err, "failed to write output")
					}
				}
				return writeJSON(cmd.OutOrStdout(), rows)
			}

			bundle, err := rt.SeriesBuilder.Prepare(wb.Metadata, wb.Raw, ceiling)
			if err != nil {
				return apperrors.Wrap(err, "failed to prepare rank response series")
			}
			if bundle.IsEmpty() {
				rt.Logger.Warn("no replicate produced a series")
			}
			if out != "" {
				if err := excel.WriteRankResponse(out, bundleTables(bundle)); err != nil {
					return apperrors.Wrap(err, "failed to write output")
				}
				rt.Logger.Info("wrote %s", out)
			}
			return writeJSON(cmd.OutOrStdout(), bundle)
		},
	}

	cmd.Flags().IntVar(&ceiling, "ceiling", rankresponse.DefaultRankCeiling, "Rank ceiling; defaults to RANK_CEILING")
	cmd.Flags().StringVar(&key, "key", "", "Analyse a single gene table")
	cmd.Flags().StringVar(&out, "out", "", "Also write rank-response rows to this .xlsx file")

	return cmd
}

// bundleTables flattens a bundle into one table per replicate, named
// expression_replicate, in bundle order
func bundleTables(bundle *rankresponse.Bundle) []excel.Table {
	var tables []excel.Table
	for _, exprID := range bundle.Order {
		cond := bundle.Conditions[exprID]
		for _, repID := range cond.ReplicateOrder {
			tables = append(tables, excel.Table{
				Name: fmt.Sprintf("%s_%s", exprID, repID),
				Rows: cond.Replicates[repID].Rows,
			})
		}
	}
	return tables
}

func newIntersectCmd(rt *session) *cobra.Command {
	var datatype string
	var sources []string
	var upset bool

	cmd := &cobra.Command{
		Use:   "intersect [workbook]",
		Short: "Summarise regulator overlap between up to three data sources",
		Long: `Summarise which regulators each selected source covers and how the sets
overlap. Only the first three sources count toward the summary; --upset
prints exclusive membership bars over every selected source instead.

Example: rankresponse intersect data.xlsx --datatype binding --sources harbison_chip,brent_nf_cc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dt, err := sourcename.ParseDatatype(datatype)
			if err != nil {
				return apperrors.Wrap(err, "invalid --datatype")
			}
			wb, err := excel.NewWorkbookReader(args[0], rt.Logger).ReadWorkbook()
			if err != nil {
				return apperrors.Wrap(err, "failed to read workbook")
			}
			calc, err := rt.Calculator(dt)
			if err != nil {
				return err
			}
			if upset {
				return writeJSON(cmd.OutOrStdout(), intersection.Memberships(calc.RegulatorsBySource(wb.Metadata, sources)))
			}
			return writeJSON(cmd.OutOrStdout(), calc.Summary(wb.Metadata, sources))
		},
	}

	cmd.Flags().StringVar(&datatype, "datatype", string(sourcename.Binding), "Source datatype: binding or perturbation_response")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "Source keys to compare, in display order")
	cmd.Flags().BoolVar(&upset, "upset", false, "Print UpSet membership bars")

	return cmd
}

func newDistributionCmd(rt *session) *cobra.Command {
	var column string
	var negLog10 bool

	cmd := &cobra.Command{
		Use:   "distribution [workbook]",
		Short: "Box-plot summaries of a QC column per expression and binding source",
		Long: `Box-plot summaries of a QC column per expression and binding source.

QC columns: ` + strings.Join(metadata.QCColumns, ", ") + `

Example: rankresponse distribution data.xlsx --column dto_empirical_pvalue --neglog10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isQCColumn(column) {
				return apperrors.InvalidInput(fmt.Sprintf("unknown QC column %q", column))
			}
			wb, err := excel.NewWorkbookReader(args[0], rt.Logger).ReadWorkbook()
			if err != nil {
				return apperrors.Wrap(err, "failed to read workbook")
			}

			var transform distribution.Transform
			if negLog10 {
				transform = distribution.NegLog10Transform(rt.Logger.With(column))
			}
			boxes, err := distribution.BoxSummaries(wb.Metadata, column, rt.Names, transform)
			if err != nil {
				return apperrors.Wrap(err, "failed to summarise distribution")
			}
			return writeJSON(cmd.OutOrStdout(), boxes)
		},
	}

	cmd.Flags().StringVar(&column, "column", metadata.ColumnDTOEmpiricalPValue, "QC column to summarise")
	cmd.Flags().BoolVar(&negLog10, "neglog10", false, "Summarise -log10 of the column")

	return cmd
}

func newCorrelateCmd(rt *session) *cobra.Command {
	var columns []string

	cmd := &cobra.Command{
		Use:   "correlate [workbook]",
		Short: "Clustered Pearson correlation between QC columns",
		Long: `Clustered Pearson correlation between QC columns, over the metadata rows
that carry every requested column. Undefined correlations print as null.

Example: rankresponse correlate data.xlsx --columns dto_fdr,rank_25,rank_50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range columns {
				if !isQCColumn(c) {
					return apperrors.InvalidInput(fmt.Sprintf("unknown QC column %q", c))
				}
			}
			wb, err := excel.NewWorkbookReader(args[0], rt.Logger).ReadWorkbook()
			if err != nil {
				return apperrors.Wrap(err, "failed to read workbook")
			}

			data := completeColumns(wb.Metadata, columns)
			if len(data) > 0 {
				rt.Logger.Debug("correlating %d columns over %d complete rows", len(columns), len(data[0]))
			}
			m, err := correlation.ClusteredMatrix(columns, data)
			if err != nil {
				return apperrors.Wrap(err, "failed to correlate")
			}
			return writeJSON(cmd.OutOrStdout(), nullableMatrix(m))
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", metadata.QCColumns, "QC columns to correlate")

	return cmd
}

// completeColumns extracts the requested columns from rows that carry all of
// them
func completeColumns(rows []metadata.Row, columns []string) [][]float64 {
	data := make([][]float64, len(columns))
	for i := range data {
		data[i] = []float64{}
	}
	for _, row := range rows {
		values := make([]float64, len(columns))
		complete := true
		for i, c := range columns {
			v, ok := row.QC(c)
			if !ok || math.IsNaN(v) {
				complete = false
				break
			}
			values[i] = v
		}
		if !complete {
			continue
		}
		for i, v := range values {
			data[i] = append(data[i], v)
		}
	}
	return data
}

type jsonMatrix struct {
	Labels []string     `json:"labels"`
	Values [][]*float64 `json:"values"`
}

// nullableMatrix swaps NaN for null since JSON has no NaN
func nullableMatrix(m correlation.Matrix) jsonMatrix {
	out := jsonMatrix{Labels: m.Labels, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				out.Values[i][j] = &v
			}
		}
	}
	return out
}

func isQCColumn(column string) bool {
	for _, c := range metadata.QCColumns {
		if c == column {
			return true
		}
	}
	return false
}
