// Package logging builds the slog loggers used across fetchd.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. NewFromConfig additionally tees
// output into fetchd.log under the configured log directory. Subsystems tag
// their loggers with a component attribute via WithComponent.
package logging
