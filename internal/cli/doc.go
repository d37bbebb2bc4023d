// Package cli wires together the Cobra command tree for the covtrack binary.
//
// It defines the root command and all subcommands (coverage, tracking,
// local, config, version), binds flags, loads configuration, builds the
// per-run logger and GitHub client, and returns deterministic exit codes for
// CI gating.
package cli
