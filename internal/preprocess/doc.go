// Package preprocess implements the preparation chain for a survey
// extract: encoding and outlier cleaning, composite-score target
// derivation, eligibility flagging, scale-aware K-nearest-neighbor
// imputation, and derived clinical feature engineering.
//
// # Components
//
//   - cleaner.go: code normalization, garbage-code stripping, precision
//     artifact fixes, impossible-zero nulling
//   - target.go: min-count sum over the screening instrument and the
//     binary clinical target derived from it
//   - eligibility.go: the analytic subpopulation flag
//   - scaling.go: cohort-wide min-max scaling with a zero-variance
//     fallback
//   - impute.go: pairwise-complete Euclidean KNN imputation
//   - features.go: log transforms, threshold flags, bins, z-score
//     composites, and piecewise clinical formulas
//   - dietary.go: day-1/day-2 usual-intake averaging
//
// Every component preserves row count and mutates only a clone of its
// input. Missing data is represented as a value (NaN), never an error:
// an uncomputable score leaves the row in place for population
// accounting.
//
// The KNN distance is pairwise-complete: computed over the columns
// observed in both rows with equal per-feature weight. A stricter
// complete-case distance was considered and rejected because it would
// starve high-missingness rows of neighbors.
package preprocess
