package preprocess

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// Imputer fills missing values by scale-normalized nearest-neighbor
// averaging over the full cohort, including rows later flagged
// ineligible: cross-group patterns improve neighbor availability.
//
// The identifier, composite score, target, survey weight, and design
// variables never participate; they are reattached unchanged by row
// index. Imputation is a single blocking call, deterministic for a
// fixed K and input, with internal row-block parallelism only: every
// row's imputed values are computed from the same fully-scaled input
// matrix, never from other rows' imputed values.
type Imputer struct {
	reg    *registry.Registry
	params Params
	logger *slog.Logger
}

// NewImputer creates an imputer.
func NewImputer(reg *registry.Registry, params Params, logger *slog.Logger) *Imputer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Imputer{reg: reg, params: params, logger: logger}
}

// Impute returns a copy of the table with missing values filled.
//
// Distance between two rows is Euclidean over the columns observed in
// both (pairwise-complete), with equal per-feature weight. Ties are
// broken by original row order. Each missing cell becomes the mean of
// the K nearest rows' values where observed; a cell no neighbor
// observes stays missing.
func (im *Imputer) Impute(ctx context.Context, t *dataset.Table) (*dataset.Table, error) {
	start := time.Now()
	out := t.Clone()
	rows := out.NumRows()

	im.addMissingIndicator(out)

	var imputeNames []string
	for _, name := range out.ColumnNames() {
		if !im.reg.ImputeExcluded(name) {
			imputeNames = append(imputeNames, name)
		}
	}
	if len(imputeNames) == 0 {
		return nil, &ConfigurationError{Component: "imputer", Missing: []string{"impute set"}}
	}

	// Working matrix, column-major. observed keeps the pre-imputation
	// missingness pattern; filled receives the results.
	observed := make([][]float64, len(imputeNames))
	for j, name := range imputeNames {
		observed[j] = out.Values(name)
	}

	scaler := FitMinMax(observed)
	if err := scaler.Transform(observed); err != nil {
		return nil, err
	}

	filled := make([][]float64, len(observed))
	for j, col := range observed {
		filled[j] = make([]float64, rows)
		copy(filled[j], col)
	}

	var needy []int
	for i := 0; i < rows; i++ {
		for j := range observed {
			if dataset.IsMissing(observed[j][i]) {
				needy = append(needy, i)
				break
			}
		}
	}

	unfillable := 0
	if len(needy) > 0 {
		n, err := im.fillRows(ctx, observed, filled, needy)
		if err != nil {
			return nil, err
		}
		unfillable = n
	}

	if err := scaler.Inverse(filled); err != nil {
		return nil, err
	}

	// Averaging yields continuous values for discrete codes; round
	// everything outside the numeric registry back to integers. The
	// rounded code can fall outside a non-contiguous valid set; that is
	// a documented limitation, not silently clamped.
	for j, name := range imputeNames {
		if im.reg.IsNumeric(name) {
			continue
		}
		for i, v := range filled[j] {
			if !dataset.IsMissing(v) {
				filled[j][i] = math.Round(v)
			}
		}
	}

	for j, name := range imputeNames {
		kind := im.reg.KindOf(name)
		if err := out.SetColumn(name, kind, filled[j]); err != nil {
			return nil, err
		}
	}

	im.logger.Info("imputation complete",
		slog.Int("rows", rows),
		slog.Int("impute_columns", len(imputeNames)),
		slog.Int("rows_imputed", len(needy)),
		slog.Int("cells_unfillable", unfillable),
		slog.Int("neighbors", im.params.Neighbors),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// addMissingIndicator derives the was-missing flag for the designated
// high-missingness column before any value is filled, so the
// missingness pattern survives imputation as an explanatory feature.
func (im *Imputer) addMissingIndicator(t *dataset.Table) {
	source := im.reg.MissingIndicatorSource
	name := im.reg.MissingIndicatorColumn
	if source == "" || name == "" {
		return
	}
	col := t.Column(source)
	if col == nil {
		im.logger.Warn("missing indicator skipped, source column absent",
			slog.String("column", source))
		return
	}
	indicator := make([]float64, len(col.Values))
	for i, v := range col.Values {
		if dataset.IsMissing(v) {
			indicator[i] = 1
		}
	}
	if err := t.SetColumn(name, dataset.KindCategorical, indicator); err != nil {
		im.logger.Warn("missing indicator skipped", slog.String("error", err.Error()))
	}
}

// fillRows imputes the needy rows in parallel blocks. Distances are
// always computed against the observed matrix, so the result does not
// depend on block scheduling. Returns the number of cells no neighbor
// observed.
func (im *Imputer) fillRows(ctx context.Context, observed, filled [][]float64, needy []int) (int, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(needy) {
		workers = len(needy)
	}
	block := (len(needy) + workers - 1) / workers

	unfillable := make([]int, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * block
		hi := lo + block
		if hi > len(needy) {
			hi = len(needy)
		}
		g.Go(func() error {
			for _, i := range needy[lo:hi] {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				unfillable[w] += im.fillRow(observed, filled, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range unfillable {
		total += n
	}
	return total, nil
}

// neighbor pairs a candidate row with its distance to the target row.
type neighbor struct {
	row  int
	dist float64
}

// fillRow imputes all missing cells of row i from its K nearest rows.
func (im *Imputer) fillRow(observed, filled [][]float64, i int) int {
	rows := len(observed[0])
	candidates := make([]neighbor, 0, rows-1)
	for r := 0; r < rows; r++ {
		if r == i {
			continue
		}
		dist, shared := pairwiseDistance(observed, i, r)
		if shared == 0 {
			continue
		}
		candidates = append(candidates, neighbor{row: r, dist: dist})
	}

	// Stable tie-break by original row order keeps the result
	// deterministic.
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].dist != candidates[b].dist {
			return candidates[a].dist < candidates[b].dist
		}
		return candidates[a].row < candidates[b].row
	})

	k := im.params.Neighbors
	if k > len(candidates) {
		k = len(candidates)
	}
	nearest := candidates[:k]

	unfillable := 0
	for j := range observed {
		if !dataset.IsMissing(observed[j][i]) {
			continue
		}
		sum := 0.0
		n := 0
		for _, nb := range nearest {
			v := observed[j][nb.row]
			if dataset.IsMissing(v) {
				continue
			}
			sum += v
			n++
		}
		if n > 0 {
			filled[j][i] = sum / float64(n)
		} else {
			unfillable++
		}
	}
	return unfillable
}

// pairwiseDistance computes the Euclidean distance between rows a and b
// over the columns observed in both, and the count of shared columns.
func pairwiseDistance(columns [][]float64, a, b int) (float64, int) {
	sum := 0.0
	shared := 0
	for j := range columns {
		va, vb := columns[j][a], columns[j][b]
		if dataset.IsMissing(va) || dataset.IsMissing(vb) {
			continue
		}
		d := va - vb
		sum += d * d
		shared++
	}
	if shared == 0 {
		return math.Inf(1), 0
	}
	return math.Sqrt(sum), shared
}
