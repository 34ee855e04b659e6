// Package registry defines the column semantics for a survey extract:
// canonical names, categorical encodings, garbage-code sets, and the
// numeric/categorical classification that drives cleaning and
// imputation.
//
// A Registry is an immutable value object. Components receive it
// explicitly at construction time; there is no shared mutable global
// configuration, so independent analyses can run concurrently with
// different registries.
//
// Default returns the built-in registry for the national health survey
// extract. LoadYAML reads a replacement registry from a YAML file for
// other instruments or survey cycles.
package registry
