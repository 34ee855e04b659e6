package survey

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"surveyprep/internal/dataset"
)

// DefaultMinCellSize is the minimum unweighted group size for a
// reportable estimate.
const DefaultMinCellSize = 30

// ciZ is the normal quantile for a 95% confidence interval.
const ciZ = 1.96

// ErrNoObservations is returned when an estimator has no eligible
// value/weight pairs to work with.
var ErrNoObservations = fmt.Errorf("no observations with value and positive weight")

// SampleSizeError reports groups whose unweighted count falls below the
// reporting minimum. It is fatal to the calling analysis only; the
// underlying table is untouched.
type SampleSizeError struct {
	Minimum int
	Groups  []string
	Counts  map[string]int
}

// Error implements the error interface, naming the offending groups.
func (e *SampleSizeError) Error() string {
	parts := make([]string, len(e.Groups))
	for i, g := range e.Groups {
		parts[i] = fmt.Sprintf("%s (n=%d)", g, e.Counts[g])
	}
	return fmt.Sprintf("groups below minimum unweighted size %d: %s",
		e.Minimum, strings.Join(parts, ", "))
}

// eligible reports whether the value/weight pair enters a weighted
// computation: both observed and the weight strictly positive. A
// non-positive weight disqualifies the subject from weighted analysis
// without removing the row.
func eligible(v, w float64) bool {
	return !dataset.IsMissing(v) && !dataset.IsMissing(w) && w > 0
}

// WeightedMean returns sum(value*weight)/sum(weight) over the eligible
// pairs.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) != len(weights) {
		return 0, fmt.Errorf("weighted mean: %d values, %d weights", len(values), len(weights))
	}
	num, den := 0.0, 0.0
	for i, v := range values {
		if !eligible(v, weights[i]) {
			continue
		}
		num += v * weights[i]
		den += weights[i]
	}
	if den == 0 {
		return 0, ErrNoObservations
	}
	return num / den, nil
}

// WeightedPrevalence returns the weighted percentage of subjects whose
// 0/1 indicator is set.
func WeightedPrevalence(indicators, weights []float64) (float64, error) {
	mean, err := WeightedMean(indicators, weights)
	if err != nil {
		return 0, err
	}
	return 100 * mean, nil
}

// WeightedPrevalenceAbove returns the weighted percentage of subjects
// whose value is at or above the threshold.
func WeightedPrevalenceAbove(values []float64, threshold float64, weights []float64) (float64, error) {
	indicators := make([]float64, len(values))
	for i, v := range values {
		if dataset.IsMissing(v) {
			indicators[i] = dataset.Missing()
			continue
		}
		if v >= threshold {
			indicators[i] = 1
		}
	}
	return WeightedPrevalence(indicators, weights)
}

// WeightedCovariance returns
// sum(w*(x-xbar)*(y-ybar))/sum(w) with weighted means, over the rows
// where x, y, and a positive weight are all observed.
func WeightedCovariance(x, y, weights []float64) (float64, error) {
	if len(x) != len(y) || len(x) != len(weights) {
		return 0, fmt.Errorf("weighted covariance: mismatched lengths %d/%d/%d",
			len(x), len(y), len(weights))
	}
	sumW, sumX, sumY := 0.0, 0.0, 0.0
	for i := range x {
		if !eligible(x[i], weights[i]) || dataset.IsMissing(y[i]) {
			continue
		}
		sumW += weights[i]
		sumX += x[i] * weights[i]
		sumY += y[i] * weights[i]
	}
	if sumW == 0 {
		return 0, ErrNoObservations
	}
	meanX, meanY := sumX/sumW, sumY/sumW

	cov := 0.0
	for i := range x {
		if !eligible(x[i], weights[i]) || dataset.IsMissing(y[i]) {
			continue
		}
		cov += weights[i] * (x[i] - meanX) * (y[i] - meanY)
	}
	return cov / sumW, nil
}

// WeightedCorrelation returns Cov(x,y,w)/sqrt(Cov(x,x,w)*Cov(y,y,w)).
func WeightedCorrelation(x, y, weights []float64) (float64, error) {
	covXY, err := WeightedCovariance(x, y, weights)
	if err != nil {
		return 0, err
	}
	covXX, err := WeightedCovariance(x, x, weights)
	if err != nil {
		return 0, err
	}
	covYY, err := WeightedCovariance(y, y, weights)
	if err != nil {
		return 0, err
	}
	den := math.Sqrt(covXX * covYY)
	if den == 0 {
		return 0, fmt.Errorf("weighted correlation: zero variance")
	}
	return covXY / den, nil
}

// CorrelationMatrix is a symmetric weighted correlation matrix with a
// unit diagonal. Entries that could not be estimated (zero variance)
// are NaN.
type CorrelationMatrix struct {
	Names  []string
	Values [][]float64
}

// At returns the correlation between the named columns.
func (m *CorrelationMatrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, n := range m.Names {
		if n == a {
			ia = i
		}
		if n == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// WeightedCorrelationMatrix assembles the pairwise weighted correlation
// matrix for the named columns of the table. Columns absent from the
// table are skipped with a diagnostic entry in the returned names.
func WeightedCorrelationMatrix(t *dataset.Table, names []string, weightColumn string) (*CorrelationMatrix, error) {
	weights := t.Values(weightColumn)
	if weights == nil {
		return nil, fmt.Errorf("weight column %s not found", weightColumn)
	}

	var valid []string
	var columns [][]float64
	for _, name := range names {
		vs := t.Values(name)
		if vs == nil {
			continue
		}
		valid = append(valid, name)
		columns = append(columns, vs)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("none of the requested columns are present")
	}

	n := len(valid)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rho, err := WeightedCorrelation(columns[i], columns[j], weights)
			if err != nil {
				rho = math.NaN()
			}
			values[i][j] = rho
			values[j][i] = rho
		}
	}
	return &CorrelationMatrix{Names: valid, Values: values}, nil
}

// ConfidenceInterval is a 95% interval around a weighted mean.
type ConfidenceInterval struct {
	Mean  float64
	Lower float64
	Upper float64
	SE    float64
}

// WeightedConfidenceInterval computes mean +/- 1.96 * weighted standard
// error. The standard error uses the weighted variance over the Kish
// effective sample size, the established routine for design weights
// treated as sampling weights.
func WeightedConfidenceInterval(values, weights []float64) (ConfidenceInterval, error) {
	mean, err := WeightedMean(values, weights)
	if err != nil {
		return ConfidenceInterval{}, err
	}

	sumW, sumW2, ss := 0.0, 0.0, 0.0
	for i, v := range values {
		if !eligible(v, weights[i]) {
			continue
		}
		w := weights[i]
		sumW += w
		sumW2 += w * w
		d := v - mean
		ss += w * d * d
	}
	variance := ss / sumW
	effN := sumW * sumW / sumW2
	se := math.Sqrt(variance / effN)

	return ConfidenceInterval{
		Mean:  mean,
		Lower: mean - ciZ*se,
		Upper: mean + ciZ*se,
		SE:    se,
	}, nil
}

// CheckSampleSufficiency fails when any group's unweighted count is
// below the minimum. Pass min <= 0 to use DefaultMinCellSize.
func CheckSampleSufficiency(groupCounts map[string]int, min int) error {
	if min <= 0 {
		min = DefaultMinCellSize
	}
	var offending []string
	for group, n := range groupCounts {
		if n < min {
			offending = append(offending, group)
		}
	}
	if len(offending) == 0 {
		return nil
	}
	sort.Strings(offending)
	counts := make(map[string]int, len(offending))
	for _, g := range offending {
		counts[g] = groupCounts[g]
	}
	return &SampleSizeError{Minimum: min, Groups: offending, Counts: counts}
}

// GroupCounts tallies the unweighted count of observed values per code
// of a grouping column, for use with CheckSampleSufficiency. Rows
// missing the group or the value are excluded.
func GroupCounts(t *dataset.Table, valueColumn, groupColumn string) (map[string]int, error) {
	values := t.Values(valueColumn)
	groups := t.Values(groupColumn)
	if values == nil {
		return nil, fmt.Errorf("value column %s not found", valueColumn)
	}
	if groups == nil {
		return nil, fmt.Errorf("group column %s not found", groupColumn)
	}
	counts := make(map[string]int)
	for i, g := range groups {
		if dataset.IsMissing(g) || dataset.IsMissing(values[i]) {
			continue
		}
		counts[fmt.Sprintf("%s=%g", groupColumn, g)]++
	}
	return counts, nil
}
