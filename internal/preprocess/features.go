package preprocess

import (
	"log/slog"
	"math"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// FeatureEngineer derives secondary clinical indices from the imputed
// table. Every sub-step is independent and skipped silently when its
// required inputs are absent; the skips are surfaced as diagnostics,
// never as fabricated data.
type FeatureEngineer struct {
	reg    *registry.Registry
	params Params
	logger *slog.Logger
}

// NewFeatureEngineer creates a feature engineer.
func NewFeatureEngineer(reg *registry.Registry, params Params, logger *slog.Logger) *FeatureEngineer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureEngineer{reg: reg, params: params, logger: logger}
}

// Engineer returns a copy of the table with the derived indices added
// and a list of sub-steps that were skipped for missing inputs.
func (fe *FeatureEngineer) Engineer(t *dataset.Table) (*dataset.Table, []string, error) {
	out := t.Clone()
	var skipped []string

	skipped = append(skipped, fe.logTransforms(out)...)
	skipped = append(skipped, fe.inflammationFlag(out)...)
	skipped = append(skipped, fe.bmiBins(out)...)
	skipped = append(skipped, fe.antioxidantIndex(out)...)
	skipped = append(skipped, fe.inflammatoryIndex(out)...)
	skipped = append(skipped, fe.metabolicIndices(out)...)
	skipped = append(skipped, fe.filtrationRate(out)...)

	if len(skipped) > 0 {
		fe.logger.Warn("feature sub-steps skipped for missing inputs",
			slog.Any("skipped", skipped))
	}
	fe.logger.Info("feature engineering complete",
		slog.Int("rows", out.NumRows()),
		slog.Int("columns", out.NumCols()),
		slog.Int("skipped", len(skipped)),
	)
	return out, skipped, nil
}

// logTransforms adds log10(x + epsilon) versions of right-skewed
// markers.
func (fe *FeatureEngineer) logTransforms(t *dataset.Table) []string {
	transforms := []struct{ source, derived string }{
		{"Lead_ugdL", "Log_Lead"},
		{"Cadmium_ugL", "Log_Cadmium"},
		{"Mercury_Total_ugL", "Log_Mercury"},
		{"CRP_mgL", "Log_CRP"},
	}
	var skipped []string
	for _, tr := range transforms {
		col := t.Column(tr.source)
		if col == nil {
			skipped = append(skipped, tr.derived)
			continue
		}
		values := make([]float64, len(col.Values))
		for i, v := range col.Values {
			if dataset.IsMissing(v) {
				values[i] = dataset.Missing()
				continue
			}
			values[i] = math.Log10(v + fe.params.LogEpsilon)
		}
		fe.set(t, tr.derived, dataset.KindNumeric, values)
	}
	return skipped
}

// inflammationFlag marks subjects with CRP at or above the acute
// threshold. A missing CRP does not raise the flag.
func (fe *FeatureEngineer) inflammationFlag(t *dataset.Table) []string {
	col := t.Column("CRP_mgL")
	if col == nil {
		return []string{"is_acute_inflammation"}
	}
	values := make([]float64, len(col.Values))
	for i, v := range col.Values {
		if !dataset.IsMissing(v) && v >= 10 {
			values[i] = 1
		}
	}
	fe.set(t, "is_acute_inflammation", dataset.KindCategorical, values)
	return nil
}

// bmiBins assigns the ordered BMI category from fixed cut points:
// (0,18.5] -> 0, (18.5,25] -> 1, (25,30] -> 2, (30,100] -> 3.
func (fe *FeatureEngineer) bmiBins(t *dataset.Table) []string {
	col := t.Column("BMI")
	if col == nil {
		return []string{"BMI_Category"}
	}
	cuts := []float64{0, 18.5, 25, 30, 100}
	values := make([]float64, len(col.Values))
	for i, v := range col.Values {
		values[i] = binOrdinal(v, cuts)
	}
	fe.set(t, "BMI_Category", dataset.KindCategorical, values)
	return nil
}

// binOrdinal places v into right-closed intervals between the cut
// points; values outside (cuts[0], cuts[last]] are missing.
func binOrdinal(v float64, cuts []float64) float64 {
	if dataset.IsMissing(v) || v <= cuts[0] || v > cuts[len(cuts)-1] {
		return dataset.Missing()
	}
	for b := 1; b < len(cuts); b++ {
		if v <= cuts[b] {
			return float64(b - 1)
		}
	}
	return dataset.Missing()
}

// antioxidantIndex computes the composite dietary antioxidant index as
// the sum of per-column z-scores over the six antioxidant intakes.
// Missing components are skipped per row rather than propagated.
func (fe *FeatureEngineer) antioxidantIndex(t *dataset.Table) []string {
	components := []string{
		"VitaminA_ug", "VitaminC_mg", "VitaminE_mg",
		"Zinc_mg", "Selenium_ug", "Magnesium_mg",
	}
	if missing := absentColumns(t, components); len(missing) > 0 {
		return []string{"CDAI"}
	}
	values := compositeZSum(t, components, nil, true)
	fe.set(t, "CDAI", dataset.KindNumeric, values)
	return nil
}

// inflammatoryIndex computes a simplified dietary inflammatory index:
// pro-inflammatory intakes add their z-score, anti-inflammatory
// intakes subtract theirs. Any missing component leaves the row's
// index missing.
func (fe *FeatureEngineer) inflammatoryIndex(t *dataset.Table) []string {
	plus := []string{"DietaryChol_mg", "SaturatedFat_g"}
	minus := []string{
		"Alcohol_g", "VitaminE_mg", "VitaminA_ug", "Fiber_g",
		"VitaminC_mg", "Magnesium_mg", "Niacin_mg", "VitaminB6_mg",
		"VitaminB12_ug", "Zinc_mg", "Selenium_ug",
	}
	if missing := absentColumns(t, append(append([]string{}, plus...), minus...)); len(missing) > 0 {
		return []string{"DII"}
	}
	values := compositeZSum(t, plus, minus, false)
	fe.set(t, "DII", dataset.KindNumeric, values)
	return nil
}

// metabolicIndices derives mean arterial pressure, the
// triglyceride-glucose index, and the combined metabolic score.
func (fe *FeatureEngineer) metabolicIndices(t *dataset.Table) []string {
	var skipped []string

	sys := t.Column("BP_Systolic")
	dia := t.Column("BP_Diastolic")
	if sys != nil && dia != nil {
		values := make([]float64, len(sys.Values))
		for i := range values {
			s, d := sys.Values[i], dia.Values[i]
			if dataset.IsMissing(s) || dataset.IsMissing(d) {
				values[i] = dataset.Missing()
				continue
			}
			values[i] = d + (s-d)/3
		}
		fe.set(t, "MAP", dataset.KindNumeric, values)
	} else {
		skipped = append(skipped, "MAP")
	}

	trig := t.Column("Triglycerides_mgdL")
	glu := t.Column("Glucose_mgdL")
	if trig != nil && glu != nil {
		values := make([]float64, len(trig.Values))
		for i := range values {
			tv, gv := trig.Values[i], glu.Values[i]
			if dataset.IsMissing(tv) || dataset.IsMissing(gv) || tv*gv <= 0 {
				values[i] = dataset.Missing()
				continue
			}
			values[i] = math.Log(tv * gv / 2)
		}
		fe.set(t, "TyG_Index", dataset.KindNumeric, values)
	} else {
		skipped = append(skipped, "TyG_Index")
	}

	components := []string{"Cholesterol_Total_mgdL", "UricAcid_mgdL", "MAP", "TyG_Index"}
	if missing := absentColumns(t, components); len(missing) > 0 {
		skipped = append(skipped, "Metabolic_Score")
		return skipped
	}
	values := compositeZSum(t, components, nil, false)
	fe.set(t, "Metabolic_Score", dataset.KindNumeric, values)
	return skipped
}

// filtrationRate estimates the glomerular filtration rate with the
// CKD-EPI 2021 formula. Constants depend on sex; zero or missing
// creatinine yields a missing estimate.
func (fe *FeatureEngineer) filtrationRate(t *dataset.Table) []string {
	age := t.Column("Age")
	sex := t.Column("Gender")
	scr := t.Column("Creatinine_mgdL")
	if age == nil || sex == nil || scr == nil {
		return []string{"eGFR"}
	}
	values := make([]float64, len(age.Values))
	for i := range values {
		a, s, cr := age.Values[i], sex.Values[i], scr.Values[i]
		if dataset.IsMissing(a) || dataset.IsMissing(s) || dataset.IsMissing(cr) || cr == 0 {
			values[i] = dataset.Missing()
			continue
		}
		// Gender is encoded 0=male, 1=female.
		k, alpha, f := 0.9, -0.302, 1.0
		if s == 1 {
			k, alpha, f = 0.7, -0.241, 1.012
		}
		ratio := cr / k
		values[i] = 142 *
			math.Pow(math.Min(ratio, 1), alpha) *
			math.Pow(math.Max(ratio, 1), -1.200) *
			math.Pow(0.9938, a) * f
	}
	fe.set(t, "eGFR", dataset.KindNumeric, values)
	return nil
}

// set replaces or adds a derived column; derived columns are always
// recomputed fresh.
func (fe *FeatureEngineer) set(t *dataset.Table, name string, kind dataset.Kind, values []float64) {
	if err := t.SetColumn(name, kind, values); err != nil {
		fe.logger.Warn("derived column not set",
			slog.String("column", name), slog.String("error", err.Error()))
	}
}

// absentColumns returns the subset of names not present in the table.
func absentColumns(t *dataset.Table, names []string) []string {
	var missing []string
	for _, name := range names {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// compositeZSum builds a signed sum of per-column z-scores. Zero
// variance degrades to mean-centering instead of dividing by zero.
// With skipMissing, a row sums only its observed components; otherwise
// any missing component leaves the row's composite missing.
func compositeZSum(t *dataset.Table, plus, minus []string, skipMissing bool) []float64 {
	type term struct {
		values []float64
		mean   float64
		std    float64
		sign   float64
	}
	rows := t.NumRows()
	var terms []term
	for _, group := range []struct {
		names []string
		sign  float64
	}{{plus, 1}, {minus, -1}} {
		for _, name := range group.names {
			col := t.Column(name)
			mean, std := meanStd(col.Values)
			terms = append(terms, term{values: col.Values, mean: mean, std: std, sign: group.sign})
		}
	}

	values := make([]float64, rows)
	for i := 0; i < rows; i++ {
		sum := 0.0
		observed := 0
		missing := false
		for _, tm := range terms {
			v := tm.values[i]
			if dataset.IsMissing(v) {
				missing = true
				continue
			}
			z := v - tm.mean
			if tm.std > 0 {
				z /= tm.std
			}
			sum += tm.sign * z
			observed++
		}
		switch {
		case !skipMissing && missing:
			values[i] = dataset.Missing()
		case observed == 0:
			values[i] = dataset.Missing()
		default:
			values[i] = sum
		}
	}
	return values
}

// meanStd computes the mean and sample standard deviation over the
// observed values of a column.
func meanStd(values []float64) (float64, float64) {
	sum := 0.0
	n := 0
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0, 0
	}
	mean := sum / float64(n)
	if n < 2 {
		return mean, 0
	}
	ss := 0.0
	for _, v := range values {
		if dataset.IsMissing(v) {
			continue
		}
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n-1))
}
