// Package main hosts the scantest CLI entrypoint and command graph.
//
// The Cobra command tree lists cameras, runs a scan session against one of
// them, grabs still photos and scaffolds configuration. It centralizes config
// resolution and logger setup in commandContext so subcommands only wire the
// internal packages together.
package main
