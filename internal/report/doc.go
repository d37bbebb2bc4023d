// Package report turns grouped coverage into the data behind every covtrack
// artifact: pull request and push comments, local run reports, and the
// per-branch and README pages of the tracking repository.
//
// Builders here decide what is reported; package output decides how it
// looks.
package report
