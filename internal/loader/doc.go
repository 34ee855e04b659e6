// Package loader ingests raw survey extract files into dataset tables:
// CSV (BOM-aware) and XLSX workbooks, one row per subject, keyed by the
// unique identifier column.
//
// The loader is the external collaborator in front of the pipeline: it
// merges auxiliary files onto the demographic backbone by identifier
// and leaves all cleaning to the pipeline itself. Files contributing no
// requested columns are skipped with a diagnostic, never an error.
package loader
