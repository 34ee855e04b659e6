// Package exporter writes prepared tables back to disk as CSV, the
// interchange format downstream analysis consumes. Missing values
// become empty cells and the subject identifier is written as an
// integer.
package exporter
