package metadata

import (
	"tfbpdash/domain/core"
)

// QC column names carried by rank-response metadata
const (
	ColumnDTOFDR             = "dto_fdr"
	ColumnDTOEmpiricalPValue = "dto_empirical_pvalue"
	ColumnUnivariatePValue   = "univariate_pvalue"
	ColumnUnivariateRSquared = "univariate_rsquared"
	ColumnRank25             = "rank_25"
	ColumnRank50             = "rank_50"
)

// QCColumns lists the numeric QC columns in display order
var QCColumns = []string{
	ColumnDTOFDR,
	ColumnDTOEmpiricalPValue,
	ColumnUnivariatePValue,
	ColumnUnivariateRSquared,
	ColumnRank25,
	ColumnRank50,
}

// Row is one metadata record. In the binding/perturbation tables each row
// describes a dataset; in rank-response tables each row describes one
// replicate (promoter-set signature) against one expression condition.
//
// Columns the loader does not recognise are kept verbatim in Extra.
type Row struct {
	ID               string           `json:"id"`
	RegulatorID      core.RegulatorID `json:"regulator_id"`
	RegulatorSymbol  string           `json:"regulator_symbol"`
	SourceName       string           `json:"source_name"`
	BindingSource    string           `json:"binding_source,omitempty"`
	ExpressionSource string           `json:"expression_source,omitempty"`
	ExpressionID     string           `json:"expression,omitempty"`
	ReplicateID      string           `json:"promotersetsig,omitempty"`

	DTOFDR             *float64 `json:"dto_fdr,omitempty"`
	DTOEmpiricalPValue *float64 `json:"dto_empirical_pvalue,omitempty"`
	UnivariatePValue   *float64 `json:"univariate_pvalue,omitempty"`
	UnivariateRSquared *float64 `json:"univariate_rsquared,omitempty"`
	Rank25             *float64 `json:"rank_25,omitempty"`
	Rank50             *float64 `json:"rank_50,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Regulator returns the regulator identity used for set membership. The
// symbol wins when present since the dashboard tabs group by symbol.
func (r Row) Regulator() string {
	if r.RegulatorSymbol != "" {
		return r.RegulatorSymbol
	}
	return r.RegulatorID.String()
}

// QC returns the value of a named QC column and whether it is present
func (r Row) QC(column string) (float64, bool) {
	var v *float64
	switch column {
	case ColumnDTOFDR:
		v = r.DTOFDR
	case ColumnDTOEmpiricalPValue:
		v = r.DTOEmpiricalPValue
	case ColumnUnivariatePValue:
		v = r.UnivariatePValue
	case ColumnUnivariateRSquared:
		v = r.UnivariateRSquared
	case ColumnRank25:
		v = r.Rank25
	case ColumnRank50:
		v = r.Rank50
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// SetQC assigns a named QC column and reports whether the name is known
func (r *Row) SetQC(column string, value float64) bool {
	v := value
	switch column {
	case ColumnDTOFDR:
		r.DTOFDR = &v
	case ColumnDTOEmpiricalPValue:
		r.DTOEmpiricalPValue = &v
	case ColumnUnivariatePValue:
		r.UnivariatePValue = &v
	case ColumnUnivariateRSquared:
		r.UnivariateRSquared = &v
	case ColumnRank25:
		r.Rank25 = &v
	case ColumnRank50:
		r.Rank50 = &v
	default:
		return false
	}
	return true
}

// Float is a convenience for building rows in code and tests
func Float(v float64) *float64 {
	return &v
}
