package excel

import (
	"tfbpdash/domain/metadata"
	"tfbpdash/domain/rankresponse"
)

// MetadataSheet is the sheet holding replicate metadata; every other sheet
// is a gene-level table named by its raw-data key
const MetadataSheet = "metadata"

// Gene table columns
const (
	ColumnRankBin    = "rank_bin"
	ColumnResponsive = "responsive"
	ColumnRandom     = "random"
)

// maxSheetName is the Excel limit on sheet name length
const maxSheetName = 31

// RawRowData represents a row of raw sheet data as string key-value pairs
type RawRowData map[string]string

// SheetData represents one sheet
type SheetData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}

// Workbook is the parsed content of a rank-response workbook
type Workbook struct {
	Metadata []metadata.Row
	Raw      map[string][]rankresponse.GeneRecord
	// RawOrder keeps gene sheets in workbook order
	RawOrder []string
}

// Table is a named set of rank-response rows written to one sheet
type Table struct {
	Name string
	Rows []rankresponse.RankResponseRow
}
