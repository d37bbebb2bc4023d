// Package github provides a minimal GitHub REST API client for publishing
// coverage results: pull-request file listings, issue, commit and review
// comments, workflow dispatches, and a contents-API backed records store.
//
// A Client is constructed explicitly with a token and passed to whatever
// needs it; there is no package-level instance.
package github
