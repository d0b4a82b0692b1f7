package excel

import (
	"fmt"
	"sort"
	"strings"

	"tfbpdash/domain/core"
	"tfbpdash/domain/metadata"

	"github.com/xuri/excelize/v2"
)

var rankResponseHeader = []interface{}{
	"rank_bin", "n_responsive_in_rank", "n_successes", "response_ratio",
	"pvalue", "ci_lower", "ci_upper", "random",
}

// WriteRankResponse writes each table to its own sheet, in order
func WriteRankResponse(path string, tables []Table) error {
	if len(tables) == 0 {
		return core.NewInvalidInputError("tables", "nothing to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, table := range tables {
		if err := addSheet(f, i, table.Name); err != nil {
			return err
		}
		rows := make([][]interface{}, 0, len(table.Rows)+1)
		rows = append(rows, rankResponseHeader)
		for _, r := range table.Rows {
			rows = append(rows, []interface{}{
				r.RankBin, r.NResponsiveInRank, r.NSuccesses, r.ResponseRatio,
				r.PValue, r.CILower, r.CIUpper, r.RandomExpectation,
			})
		}
		if err := writeRows(f, table.Name, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// WriteWorkbook writes metadata and gene tables in the layout
// WorkbookReader expects. Gene sheets follow wb.RawOrder, then any
// remaining keys sorted.
func WriteWorkbook(path string, wb *Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := addSheet(f, 0, MetadataSheet); err != nil {
		return err
	}
	if err := writeRows(f, MetadataSheet, metadataRows(wb.Metadata)); err != nil {
		return err
	}

	for i, key := range rawKeys(wb) {
		if err := addSheet(f, i+1, key); err != nil {
			return err
		}
		rows := [][]interface{}{{ColumnRankBin, ColumnResponsive, ColumnRandom}}
		for _, g := range wb.Raw[key] {
			rows = append(rows, []interface{}{g.RankBin, g.Responsive, g.RandomExpectation})
		}
		if err := writeRows(f, key, rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func metadataRows(rows []metadata.Row) [][]interface{} {
	extraSet := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.Extra {
			extraSet[k] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	header := make([]interface{}, 0, len(MetadataColumns)+len(metadata.QCColumns)+len(extras))
	for _, c := range MetadataColumns {
		header = append(header, c)
	}
	for _, c := range metadata.QCColumns {
		header = append(header, c)
	}
	for _, c := range extras {
		header = append(header, c)
	}

	out := [][]interface{}{header}
	for _, r := range rows {
		line := []interface{}{
			r.ID, r.RegulatorID.String(), r.RegulatorSymbol, r.SourceName,
			r.BindingSource, r.ExpressionSource, r.ExpressionID, r.ReplicateID,
		}
		for _, c := range metadata.QCColumns {
			if v, ok := r.QC(c); ok {
				line = append(line, v)
			} else {
				line = append(line, "")
			}
		}
		for _, c := range extras {
			line = append(line, r.Extra[c])
		}
		out = append(out, line)
	}
	return out
}

func rawKeys(wb *Workbook) []string {
	seen := make(map[string]bool, len(wb.Raw))
	keys := make([]string, 0, len(wb.Raw))
	for _, k := range wb.RawOrder {
		if _, ok := wb.Raw[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range wb.Raw {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// addSheet renames the default sheet for index 0 and creates the others
func addSheet(f *excelize.File, index int, name string) error {
	if err := validSheetName(name); err != nil {
		return err
	}
	if index == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", name, err)
		}
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}
	return nil
}

func validSheetName(name string) error {
	if name == "" {
		return core.NewInvalidInputError("sheet", "empty name")
	}
	if len([]rune(name)) > maxSheetName {
		return core.NewInvalidInputError("sheet", fmt.Sprintf("%q is longer than %d characters", name, maxSheetName))
	}
	if strings.ContainsAny(name, `:\/?*[]`) {
		return core.NewInvalidInputError("sheet", fmt.Sprintf("%q contains a reserved character", name))
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}
	return nil
}
