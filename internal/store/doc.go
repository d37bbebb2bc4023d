// Package store persists snapshot collections. A BlobStore reads and writes
// one records file per branch with optimistic concurrency; Update wraps
// the read-modify-write cycle and retries conflicting writes. Walk loads a
// local records tree for report rebuilding.
package store
