// Package config loads and merges covtrack configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (COVTRACK_GITHUB_TOKEN, COVTRACK_STORE_BACKEND, etc.;
//     GITHUB_TOKEN is also honoured for the token)
//  3. Config file (.covtrack.yaml in the working directory or $HOME, or --config)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config] and [Init] to write a default config
// file.
package config
