// Package main hosts the filmdex CLI entrypoint and command graph.
//
// The Cobra-based command tree covers batch index builds, ad hoc URL
// resolution, diary feed sync, cache inspection, curated list checks,
// configuration scaffolding, and the long-running batch API server. It
// centralizes configuration loading and structured logging setup so
// subcommands stay thin over the internal packages.
package main
