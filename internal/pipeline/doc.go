// Package pipeline sequences the preparation stages deterministically
// over one table: clean, derive target, flag eligibility, average
// dietary recalls, impute, engineer features.
//
// Stages run strictly in order inside a single blocking Run call; no
// stage starts before the prior completes, and there are no partial
// results. Each run owns its input table exclusively and carries a
// uuid run identifier through its logs and trace spans.
//
// Row count is an invariant across the chain: a stage that changes it
// fails the run. Dropping rows (for example subjects with a missing
// target) is an explicit terminal step outside the pipeline.
package pipeline
