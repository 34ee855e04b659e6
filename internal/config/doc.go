// Package config loads the batch preparation configuration from
// environment variables (SVY_ prefix) merged with an optional YAML
// file, and validates the result before any stage runs.
//
// Configuration is loaded once and passed explicitly into components;
// nothing in this package is mutated after Load returns.
package config
