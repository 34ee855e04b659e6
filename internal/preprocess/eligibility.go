package preprocess

import (
	"log/slog"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// EligibilityFlagger computes the analytic subpopulation flag: a pure
// function of age, target availability, survey weight, and the
// acute-confounder biomarkers. Ineligible rows are retained with flag 0
// so weighted population totals stay structurally meaningful.
type EligibilityFlagger struct {
	reg    *registry.Registry
	params Params
	logger *slog.Logger
}

// NewEligibilityFlagger creates an eligibility flagger.
func NewEligibilityFlagger(reg *registry.Registry, params Params, logger *slog.Logger) *EligibilityFlagger {
	if logger == nil {
		logger = slog.Default()
	}
	return &EligibilityFlagger{reg: reg, params: params, logger: logger}
}

// Flag returns a copy of the table with the 0/1 eligibility column
// recomputed from source fields. Any previously stored flag is
// discarded first: the flag is never mutated directly, only derived.
//
// A subject is eligible when all of the following hold:
//   - age is observed and at least the adult threshold
//   - the binary target is observed
//   - the survey weight is observed and strictly positive
//   - for each limit biomarker, the value is at or below the limit or
//     missing (missing biomarkers are deferred to imputation, not
//     grounds for exclusion)
func (f *EligibilityFlagger) Flag(t *dataset.Table) (*dataset.Table, error) {
	out := t.Clone()
	out.DropColumn(f.reg.FlagColumn)

	rows := out.NumRows()
	age := out.Column("Age")
	target := out.Column(f.reg.TargetColumn)
	weight := out.Column(f.reg.WeightColumn)

	if age == nil || target == nil || weight == nil {
		var missing []string
		if age == nil {
			missing = append(missing, "Age")
		}
		if target == nil {
			missing = append(missing, f.reg.TargetColumn)
		}
		if weight == nil {
			missing = append(missing, f.reg.WeightColumn)
		}
		return nil, &ConfigurationError{Component: "eligibility", Missing: missing}
	}

	type limitColumn struct {
		col   *dataset.Column
		limit float64
	}
	var limits []limitColumn
	for _, bl := range f.params.BiomarkerLimits {
		col := out.Column(bl.Column)
		if col == nil {
			// Absent biomarker cannot disqualify anyone; log and move on.
			f.logger.Warn("biomarker limit skipped, column absent",
				slog.String("column", bl.Column))
			continue
		}
		limits = append(limits, limitColumn{col: col, limit: bl.Limit})
	}

	flag := make([]float64, rows)
	eligible := 0
	for i := 0; i < rows; i++ {
		ok := !dataset.IsMissing(age.Values[i]) && age.Values[i] >= f.params.AdultAge
		ok = ok && !dataset.IsMissing(target.Values[i])
		ok = ok && !dataset.IsMissing(weight.Values[i]) && weight.Values[i] > 0
		for _, lc := range limits {
			if !ok {
				break
			}
			v := lc.col.Values[i]
			ok = dataset.IsMissing(v) || v <= lc.limit
		}
		if ok {
			flag[i] = 1
			eligible++
		}
	}

	if err := out.AddColumn(f.reg.FlagColumn, dataset.KindCategorical, flag); err != nil {
		return nil, err
	}

	f.logger.Info("eligibility flagged",
		slog.Int("rows", rows),
		slog.Int("eligible", eligible),
		slog.Int("biomarker_limits", len(limits)),
	)
	return out, nil
}
