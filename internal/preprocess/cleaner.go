package preprocess

import (
	"log/slog"
	"math"

	"surveyprep/internal/dataset"
	"surveyprep/internal/registry"
)

// Cleaner normalizes coded categorical and numeric artifacts without
// deleting rows: canonical renaming, categorical encoding, precision
// micro-number fixes, impossible-zero nulling, and garbage-code
// stripping.
type Cleaner struct {
	reg    *registry.Registry
	params Params
	logger *slog.Logger
}

// NewCleaner creates a cleaner over the given column semantics.
func NewCleaner(reg *registry.Registry, params Params, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{reg: reg, params: params, logger: logger}
}

// Clean returns a cleaned copy of the table. Row count is preserved;
// every repair replaces a value with either its canonical form or the
// missing marker.
func (c *Cleaner) Clean(t *dataset.Table) (*dataset.Table, error) {
	out := t.Clone()

	c.renameColumns(out)
	encoded := c.applyEncodings(out)
	microFixed := c.fixMicroNumbers(out)
	zeroed := c.nullImpossibleZeros(out)
	blanked := c.stripGarbageCodes(out)

	c.logger.Info("cleaning complete",
		slog.Int("rows", out.NumRows()),
		slog.Int("columns", out.NumCols()),
		slog.Int("encoded_columns", encoded),
		slog.Int("micro_fixes", microFixed),
		slog.Int("impossible_zeros", zeroed),
		slog.Int("garbage_codes", blanked),
	)
	return out, nil
}

// renameColumns maps raw source names to canonical names. Raw names
// without a mapping are kept as-is; the instrument items, for example,
// keep their source names until target derivation removes them.
func (c *Cleaner) renameColumns(t *dataset.Table) {
	for raw, canonical := range c.reg.Rename {
		if !t.HasColumn(raw) {
			continue
		}
		if err := t.RenameColumn(raw, canonical); err != nil {
			c.logger.Warn("rename skipped", slog.String("from", raw),
				slog.String("to", canonical), slog.String("error", err.Error()))
		}
	}
}

// applyEncodings maps declared categorical codes to analysis values.
// Any code absent from a column's encoding map becomes missing; this
// silently retires refused/don't-know codes on encoded columns.
func (c *Cleaner) applyEncodings(t *dataset.Table) int {
	applied := 0
	for name, mapping := range c.reg.Encodings {
		col := t.Column(name)
		if col == nil {
			c.logger.Debug("encoding skipped, column absent", slog.String("column", name))
			continue
		}
		for i, v := range col.Values {
			if dataset.IsMissing(v) {
				continue
			}
			code, exact := asCode(v)
			if !exact {
				col.Values[i] = dataset.Missing()
				continue
			}
			mapped, ok := mapping[code]
			if !ok {
				col.Values[i] = dataset.Missing()
				continue
			}
			col.Values[i] = mapped
		}
		applied++
	}
	return applied
}

// fixMicroNumbers snaps values within MicroEpsilon of zero to exactly
// zero on numeric columns. Source files store some zeros as residues
// like 5.39e-79.
func (c *Cleaner) fixMicroNumbers(t *dataset.Table) int {
	fixed := 0
	for _, name := range t.ColumnNames() {
		if !c.reg.IsNumeric(name) {
			continue
		}
		col := t.Column(name)
		for i, v := range col.Values {
			if dataset.IsMissing(v) || v == 0 {
				continue
			}
			if math.Abs(v) < c.params.MicroEpsilon {
				col.Values[i] = 0
				fixed++
			}
		}
	}
	return fixed
}

// nullImpossibleZeros replaces exact zeros with the missing marker on
// columns where zero is biologically impossible.
func (c *Cleaner) nullImpossibleZeros(t *dataset.Table) int {
	nulled := 0
	for _, name := range c.reg.ImpossibleZero {
		col := t.Column(name)
		if col == nil {
			c.logger.Debug("impossible-zero check skipped, column absent",
				slog.String("column", name))
			continue
		}
		for i, v := range col.Values {
			if v == 0 {
				col.Values[i] = dataset.Missing()
				nulled++
			}
		}
	}
	return nulled
}

// stripGarbageCodes blanks declared sentinel codes on categorical
// columns.
func (c *Cleaner) stripGarbageCodes(t *dataset.Table) int {
	blanked := 0
	for name, codes := range c.reg.MissingCodes {
		col := t.Column(name)
		if col == nil {
			continue
		}
		for i, v := range col.Values {
			if dataset.IsMissing(v) {
				continue
			}
			for _, code := range codes {
				if v == code {
					col.Values[i] = dataset.Missing()
					blanked++
					break
				}
			}
		}
	}
	return blanked
}

// asCode converts a stored float to an integer code. Non-integral
// values cannot match any declared code.
func asCode(v float64) (int, bool) {
	if v != math.Trunc(v) {
		return 0, false
	}
	return int(v), true
}
