// Package cli implements the msrv command line: argument parsing, config
// resolution, wiring of the reporter sinks and the mapping of failures to
// process exit codes.
package cli
