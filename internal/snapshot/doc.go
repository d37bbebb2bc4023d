// Package snapshot models the per-branch coverage time series: an
// append-only list of snapshots with 90-day retention, basis-point encoding
// and windowed delta queries. It holds no I/O; loading and storing a
// Collection is the job of package store.
package snapshot
