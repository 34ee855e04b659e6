// Package dataset provides the in-memory table that flows through the
// preparation pipeline: one row per subject, one column per feature.
//
// Values are float64 throughout; math.NaN() is the single missing-value
// marker. Columns carry a Kind (numeric or categorical) that downstream
// components use to decide, for example, whether imputed values must be
// rounded back to integer codes.
//
// Tables move between pipeline stages by immutable replacement: a stage
// clones its input, mutates the clone, and returns it. Clone is a deep
// copy, so a stage can never corrupt its caller's table.
package dataset
