package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dshills/covtrack/internal/lcov"
)

// Retention is how long snapshots are kept after the newest append.
const Retention = 90 * 24 * time.Hour

// FileRecord is the per-file detail kept on the newest snapshot.
type FileRecord struct {
	Percentage    int16    `json:"percentage"`
	UntestedLines []uint32 `json:"untested_lines"`
}

// NewFileRecord encodes percentage to basis points. A nil lines slice is
// stored as empty.
func NewFileRecord(percentage float64, lines []uint32) FileRecord {
	if lines == nil {
		lines = []uint32{}
	}
	return FileRecord{Percentage: ToBasisPoints(percentage), UntestedLines: lines}
}

// Snapshot is one point in a branch's coverage history.
type Snapshot struct {
	// Timestamp is unix seconds.
	Timestamp int64 `json:"timestamp"`
	// Percentage is in basis points (6020 == 60.20%).
	Percentage int16                 `json:"percentage"`
	Files      map[string]FileRecord `json:"files,omitzero"`
}

// Time returns the snapshot timestamp as a time.Time in UTC.
func (s Snapshot) Time() time.Time {
	return time.Unix(s.Timestamp, 0).UTC()
}

// Collection is the full history of one branch.
type Collection struct {
	Team      Team       `json:"team"`
	Snapshots []Snapshot `json:"records,omitempty"`
}

// New returns an empty collection owned by team.
func New(team Team) *Collection {
	return &Collection{Team: team}
}

// maxBasisPoints bounds every stored percentage, in either direction.
const maxBasisPoints = 10000

// Decode parses a records file. The team must be present and every
// percentage within ±100.00%.
func Decode(data []byte) (*Collection, error) {
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding collection: %w", err)
	}
	if !c.Team.Valid() {
		return nil, fmt.Errorf("decoding collection: %w %q", ErrInvalidTeam, string(c.Team))
	}
	for i, s := range c.Snapshots {
		if !inRange(s.Percentage) {
			return nil, fmt.Errorf("decoding collection: record %d: percentage %d out of range", i, s.Percentage)
		}
		for path, f := range s.Files {
			if !inRange(f.Percentage) {
				return nil, fmt.Errorf("decoding collection: record %d: %s: percentage %d out of range", i, path, f.Percentage)
			}
		}
	}
	return &c, nil
}

func inRange(bp int16) bool {
	return bp >= -maxBasisPoints && bp <= maxBasisPoints
}

// Encode serialises the collection.
func (c *Collection) Encode() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding collection: %w", err)
	}
	return data, nil
}

// ToBasisPoints converts a percentage to hundredths of a percent. Non-finite
// input is resolved through lcov.Resolve first. Halves round away from zero.
func ToBasisPoints(p float64) int16 {
	p = lcov.Resolve(p)
	p = min(max(p, -100), 100)
	bp := math.Round(p * 100)
	bp = min(max(bp, -10000), 10000)
	return int16(bp)
}

// Append records percentage at now, drops snapshots older than the
// retention window and keeps per-file detail only on the newest snapshot.
func (c *Collection) Append(percentage float64, files map[string]FileRecord, now time.Time) {
	c.Snapshots = append(c.Snapshots, Snapshot{
		Timestamp:  now.Unix(),
		Percentage: ToBasisPoints(percentage),
		Files:      files,
	})

	c.evict(now)
	c.strip()
}

func (c *Collection) evict(now time.Time) {
	limit := now.Add(-Retention).Unix()
	c.Snapshots = slices.DeleteFunc(c.Snapshots, func(s Snapshot) bool {
		return s.Timestamp < limit
	})
}

func (c *Collection) strip() {
	newest := c.latestIndex()
	for i := range c.Snapshots {
		if i != newest {
			c.Snapshots[i].Files = nil
		}
	}
}

// latestIndex returns the index of the snapshot with the greatest
// timestamp, the last one in storage order on ties, or -1.
func (c *Collection) latestIndex() int {
	idx := -1
	for i, s := range c.Snapshots {
		if idx < 0 || s.Timestamp >= c.Snapshots[idx].Timestamp {
			idx = i
		}
	}
	return idx
}

// Latest returns the snapshot with the greatest timestamp.
func (c *Collection) Latest() (Snapshot, bool) {
	i := c.latestIndex()
	if i < 0 {
		return Snapshot{}, false
	}
	return c.Snapshots[i], true
}

// LatestTimestamp returns the greatest snapshot timestamp.
func (c *Collection) LatestTimestamp() (int64, bool) {
	s, ok := c.Latest()
	return s.Timestamp, ok
}

// byTime returns the snapshots ordered by timestamp, oldest first. The sort
// is stable so ties keep storage order.
func byTime(snaps []Snapshot) []Snapshot {
	sorted := slices.Clone(snaps)
	slices.SortStableFunc(sorted, func(a, b Snapshot) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
	return sorted
}

// LastDelta returns the difference between the two newest snapshots. With a
// single snapshot its percentage is returned as is.
func (c *Collection) LastDelta() (int16, bool) {
	sorted := byTime(c.Snapshots)
	switch n := len(sorted); n {
	case 0:
		return 0, false
	case 1:
		return sorted[0].Percentage, true
	default:
		return sorted[n-1].Percentage - sorted[n-2].Percentage, true
	}
}

// WindowedDelta returns newest minus oldest percentage among snapshots with
// start <= timestamp <= end. When exactly one snapshot falls in the window
// its raw percentage is returned rather than a difference.
func (c *Collection) WindowedDelta(start, end int64) (int16, bool) {
	var window []Snapshot
	for _, s := range byTime(c.Snapshots) {
		if s.Timestamp >= start && s.Timestamp <= end {
			window = append(window, s)
		}
	}
	switch n := len(window); n {
	case 0:
		return 0, false
	case 1:
		return window[0].Percentage, true
	default:
		return window[n-1].Percentage - window[0].Percentage, true
	}
}

// DeltaOverDuration is WindowedDelta over the d leading up to the newest
// snapshot.
func (c *Collection) DeltaOverDuration(d time.Duration) (int16, bool) {
	end, ok := c.LatestTimestamp()
	if !ok {
		return 0, false
	}
	return c.WindowedDelta(end-int64(d/time.Second), end)
}

func (c *Collection) Delta7Days() (int16, bool)  { return c.DeltaOverDuration(7 * 24 * time.Hour) }
func (c *Collection) Delta30Days() (int16, bool) { return c.DeltaOverDuration(30 * 24 * time.Hour) }
func (c *Collection) Delta90Days() (int16, bool) { return c.DeltaOverDuration(90 * 24 * time.Hour) }

// FormatBasisPoints renders bp as a percentage with two decimals, "60.20".
func FormatBasisPoints(bp int16) string {
	sign := ""
	v := int(bp)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
