package output

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/covtrack/internal/ranges"
	"github.com/dshills/covtrack/internal/report"
	"github.com/dshills/covtrack/internal/snapshot"
)

var now = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func entry() report.BranchEntry {
	return report.BranchEntry{
		Key:        snapshot.Key{Owner: "acme", Repo: "svc", Branch: "main"},
		Coverage:   6020,
		LastDelta:  -5,
		Delta7:     120,
		Delta30:    0,
		Delta90:    1000,
		LastUpdate: now.Add(-3 * 24 * time.Hour),
	}
}

func TestReadme(t *testing.T) {
	r := report.Readme{
		Owner: "acme",
		Repo:  "coverage",
		Teams: map[snapshot.Team][]report.BranchEntry{
			snapshot.TeamSecurity: {entry()},
		},
		Total: 1,
	}

	got := Readme(r, "https://github.com", "main", now)
	assert.Contains(t, got, "# Coverage Reports")
	assert.Contains(t, got, "Tracking coverage of 1 branches of repositories.")
	assert.Contains(t, got, "- [Instant Messaging](#instant-messaging)")
	assert.Contains(t, got, "## Security\n\nTracking coverage of 1 branches")
	assert.Contains(t, got, "## Product\n\nTracking coverage of 0 branches")
	assert.Contains(t, got, "[acme/svc (main)](https://github.com/acme/svc/tree/main)")
	assert.Contains(t, got, "[Report](https://github.com/acme/coverage/blob/main/reports/acme/svc/main.md)")
	assert.Contains(t, got, "60.20%")
	assert.Contains(t, got, "-0.05%")
	assert.Contains(t, got, "1.20%")
	assert.Contains(t, got, "10.00%")
	assert.Contains(t, got, "3 days ago")

	// Teams appear in display order.
	assert.Less(t, strings.Index(got, "## Instant Messaging"), strings.Index(got, "## Workflow"))
	assert.Less(t, strings.Index(got, "## Security"), strings.Index(got, "## Other"))
}

func TestBranchReport(t *testing.T) {
	r := report.BranchReport{
		Key:   entry().Key,
		Team:  snapshot.TeamInfrastructure,
		Entry: entry(),
		Files: []report.BranchFile{{
			Path:       "src/lib.rs",
			Percentage: 4000,
			Ranges:     []ranges.LineRange{{Start: 3, End: 5}, {Start: 9, End: 9}},
		}},
	}

	got := BranchReport(r, "https://github.com", now)
	assert.Contains(t, got, "# [acme/svc](https://github.com/acme/svc/)")
	assert.Contains(t, got, "### Branch: `main`")
	assert.Contains(t, got, "### Responsible Team: Infrastructure")
	assert.Contains(t, got, "#### Last Updated: 2024-03-01 12:00 UTC (3 days ago)")
	assert.Contains(t, got, "#### Coverage: 60.20%")
	assert.Contains(t, got, "#### Last Delta: -0.05%")
	assert.Contains(t, got, "#### 90 Day Delta: 10.00%")
	assert.Contains(t, got, "[src/lib.rs](https://github.com/acme/svc/blob/main/src/lib.rs)")
	assert.Contains(t, got, "[3-5](https://github.com/acme/svc/blob/main/src/lib.rs#L3-L5), [9](https://github.com/acme/svc/blob/main/src/lib.rs#L9)")
	assert.Contains(t, got, "40.00%")
}

func TestBranchReport_NoFiles(t *testing.T) {
	r := report.BranchReport{Key: entry().Key, Team: snapshot.TeamOther, Entry: entry()}

	got := BranchReport(r, "https://github.com", now)
	assert.Contains(t, got, "No per-file coverage")
}
