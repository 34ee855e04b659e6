// Package survey implements design-weight-aware estimators for complex
// survey data: weighted mean, prevalence, covariance, correlation,
// confidence intervals, and the sample-sufficiency check that guards
// published estimates.
//
// Every estimator excludes rows missing the value, the group, or a
// positive weight from that specific computation; the source data is
// never mutated. An unweighted group count below the reporting minimum
// is a hard failure of the calling analysis (SampleSizeError), not of
// the data.
package survey
