package excel

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tfbpdash/domain/core"
	"tfbpdash/domain/metadata"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/internal"

	"github.com/xuri/excelize/v2"
)

// metadata columns mapped onto typed fields; anything else goes to Extra
const (
	columnID               = "id"
	columnRegulatorID      = "regulator_id"
	columnRegulatorSymbol  = "regulator_symbol"
	columnSourceName       = "source_name"
	columnBindingSource    = "binding_source"
	columnExpressionSource = "expression_source"
	columnExpression       = "expression"
	columnPromoterSetSig   = "promotersetsig"
)

// MetadataColumns lists the typed metadata columns in write order
var MetadataColumns = []string{
	columnID,
	columnRegulatorID,
	columnRegulatorSymbol,
	columnSourceName,
	columnBindingSource,
	columnExpressionSource,
	columnExpression,
	columnPromoterSetSig,
}

// WorkbookReader reads rank-response workbooks
type WorkbookReader struct {
	filePath string
	logger   *internal.Logger
}

// NewWorkbookReader creates a reader for the .xlsx file at filePath
func NewWorkbookReader(filePath string, logger *internal.Logger) *WorkbookReader {
	return &WorkbookReader{filePath: filePath, logger: logger.With("excel")}
}

// ReadWorkbook reads the metadata sheet and every gene table sheet
func (r *WorkbookReader) ReadWorkbook() (*Workbook, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("workbook not found: %s", r.filePath)
	}

	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	r.logger.Debug("workbook opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	wb := &Workbook{Raw: make(map[string][]rankresponse.GeneRecord)}
	foundMetadata := false
	for _, sheet := range f.GetSheetList() {
		data, err := readSheet(f, sheet)
		if err != nil {
			return nil, err
		}
		if sheet == MetadataSheet {
			foundMetadata = true
			if wb.Metadata, err = ParseMetadata(data); err != nil {
				return nil, fmt.Errorf("sheet %s: %w", sheet, err)
			}
			continue
		}
		records, err := ParseGeneRecords(data)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		wb.Raw[sheet] = records
		wb.RawOrder = append(wb.RawOrder, sheet)
	}
	if !foundMetadata {
		return nil, core.NewInvalidInputError("workbook", fmt.Sprintf("missing %q sheet", MetadataSheet))
	}

	r.logger.Info("read %d metadata rows and %d gene tables from %s", len(wb.Metadata), len(wb.RawOrder), r.filePath)
	return wb, nil
}

// readSheet reads one sheet into headers and rows
func readSheet(f *excelize.File, sheet string) (*SheetData, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return processRows(rows), nil
}

// processRows converts raw string rows into SheetData. Blank rows are
// dropped; short rows leave the trailing columns empty.
func processRows(rows [][]string) *SheetData {
	data := &SheetData{}
	if len(rows) == 0 {
		return data
	}

	data.Headers = make([]string, len(rows[0]))
	for i, header := range rows[0] {
		data.Headers[i] = strings.TrimSpace(header)
	}

	for _, row := range rows[1:] {
		rowData := make(RawRowData)
		blank := true
		for j, cell := range row {
			if j < len(data.Headers) {
				cell = strings.TrimSpace(cell)
				rowData[data.Headers[j]] = cell
				if cell != "" {
					blank = false
				}
			}
		}
		if !blank {
			data.Rows = append(data.Rows, rowData)
		}
	}
	return data
}

// ParseMetadata maps sheet rows onto typed metadata rows
func ParseMetadata(data *SheetData) ([]metadata.Row, error) {
	out := make([]metadata.Row, 0, len(data.Rows))
	for i, raw := range data.Rows {
		row := metadata.Row{}
		for _, header := range data.Headers {
			value := raw[header]
			switch header {
			case columnID:
				row.ID = value
			case columnRegulatorID:
				row.RegulatorID = core.RegulatorID(value)
			case columnRegulatorSymbol:
				row.RegulatorSymbol = value
			case columnSourceName:
				row.SourceName = value
			case columnBindingSource:
				row.BindingSource = value
			case columnExpressionSource:
				row.ExpressionSource = value
			case columnExpression:
				row.ExpressionID = value
			case columnPromoterSetSig:
				row.ReplicateID = value
			default:
				if isQCColumn(header) {
					if value == "" {
						continue
					}
					v, err := strconv.ParseFloat(value, 64)
					if err != nil {
						return nil, core.NewInvalidInputError(header, fmt.Sprintf("row %d: %q is not a number", i+2, value))
					}
					row.SetQC(header, v)
					continue
				}
				if row.Extra == nil {
					row.Extra = make(map[string]string)
				}
				row.Extra[header] = value
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// ParseGeneRecords reads a gene table with rank_bin, responsive and random
// columns
func ParseGeneRecords(data *SheetData) ([]rankresponse.GeneRecord, error) {
	for _, col := range []string{ColumnRankBin, ColumnResponsive, ColumnRandom} {
		if !hasHeader(data.Headers, col) {
			return nil, core.NewInvalidInputError(col, "missing column")
		}
	}

	out := make([]rankresponse.GeneRecord, 0, len(data.Rows))
	for i, raw := range data.Rows {
		line := i + 2
		bin, err := parseInt(raw[ColumnRankBin])
		if err != nil {
			return nil, core.NewInvalidInputError(ColumnRankBin, fmt.Sprintf("row %d: %v", line, err))
		}
		responsive, err := parseBool(raw[ColumnResponsive])
		if err != nil {
			return nil, core.NewInvalidInputError(ColumnResponsive, fmt.Sprintf("row %d: %v", line, err))
		}
		random, err := strconv.ParseFloat(raw[ColumnRandom], 64)
		if err != nil {
			return nil, core.NewInvalidInputError(ColumnRandom, fmt.Sprintf("row %d: %q is not a number", line, raw[ColumnRandom]))
		}
		out = append(out, rankresponse.GeneRecord{
			RankBin:           bin,
			Responsive:        responsive,
			RandomExpectation: random,
		})
	}
	return out, nil
}

func isQCColumn(header string) bool {
	for _, col := range metadata.QCColumns {
		if col == header {
			return true
		}
	}
	return false
}

func hasHeader(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

// parseInt accepts integers and integral floats such as "5.0"
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

// parseBool accepts Excel booleans and 0/1 flags
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "1.0", "yes":
		return true, nil
	case "false", "0", "0.0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}
