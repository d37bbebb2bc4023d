package hunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New file lines 10..16: 10 ctx, 11 add, 12 add, 13 ctx, 14 add, 15 ctx, 16 ctx.
const twoHunkPatch = `--- a/src/lib.rs
+++ b/src/lib.rs
@@ -10,5 +10,7 @@ fn setup() {
 let a = 1;
+let b = 2;
+let c = 3;
 let d = 4;
-let e = 5;
+let e = 6;
 let f = 7;
 let g = 8;
@@ -40,3 +42,4 @@ fn teardown() {
 close();
+log();
 drop(a);
 }
`

func parseTwoHunks(t *testing.T) []Hunk {
	t.Helper()
	hunks, err := Parse(twoHunkPatch)
	require.NoError(t, err)
	require.Len(t, hunks, 2)
	return hunks
}

func TestParse(t *testing.T) {
	hunks := parseTwoHunks(t)

	assert.Equal(t, uint64(10), hunks[0].NewStart)
	assert.Equal(t, uint64(7), hunks[0].NewCount)
	assert.Equal(t, uint64(42), hunks[1].NewStart)
	assert.Equal(t, uint64(4), hunks[1].NewCount)

	require.Len(t, hunks[0].Lines, 8)
	assert.Equal(t, Line{Kind: Context, Text: "let a = 1;"}, hunks[0].Lines[0])
	assert.Equal(t, Line{Kind: Added, Text: "let b = 2;"}, hunks[0].Lines[1])
	assert.Equal(t, Line{Kind: Removed, Text: "let e = 5;"}, hunks[0].Lines[4])
}

func TestParse_HunksOnly(t *testing.T) {
	hunks, err := Parse("@@ -0,0 +1,3 @@\n+a\n+b\n+c")
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	assert.Equal(t, uint64(1), hunks[0].NewStart)
	assert.Equal(t, uint64(3), hunks[0].NewCount)
	assert.True(t, LineChangedInHunk(hunks[0], 3))
}

func TestParse_NoNewlineMarker(t *testing.T) {
	hunks, err := Parse("@@ -1,1 +1,1 @@\n-old\n\\ No newline at end of file\n+new\n\\ No newline at end of file\n")
	require.NoError(t, err)
	require.Len(t, hunks, 1)
	for _, l := range hunks[0].Lines {
		assert.NotContains(t, l.Text, "No newline")
	}
	assert.True(t, LineChangedInHunk(hunks[0], 1))
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("@@ -1,3 +1,x @@\n+a\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedDiff)
}

func TestParse_CountMismatch(t *testing.T) {
	tests := []struct {
		name  string
		patch string
	}{
		{"short body", "@@ -1,1 +1,5 @@\n+a\n"},
		{"long body", "@@ -1,1 +1,1 @@\n a\n+b\n"},
		{"second hunk", "@@ -1 +1 @@\n-a\n+b\n@@ -9,2 +9,3 @@\n x\n+y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.patch)
			assert.ErrorIs(t, err, ErrMalformedDiff)
		})
	}
}

func TestLineChangedInHunk(t *testing.T) {
	h := parseTwoHunks(t)[0]

	tests := []struct {
		line uint64
		want bool
	}{
		{9, false},  // before range
		{10, false}, // context
		{11, true},
		{12, true},
		{13, false}, // context
		{14, true},  // replaced line
		{15, false},
		{16, false},
		{17, false}, // start+count
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineChangedInHunk(h, tt.line), "line %d", tt.line)
	}
}

func TestLineChangedInHunk_Boundaries(t *testing.T) {
	for _, h := range parseTwoHunks(t) {
		assert.False(t, LineChangedInHunk(h, h.NewStart-1))
		assert.False(t, LineChangedInHunk(h, h.NewStart+h.NewCount))
	}
}

func TestLineChangedInHunk_RemovedDoesNotAdvance(t *testing.T) {
	h := Hunk{
		NewStart: 1,
		NewCount: 2,
		Lines: []Line{
			{Kind: Removed}, {Kind: Removed}, {Kind: Context}, {Kind: Added},
		},
	}
	assert.False(t, LineChangedInHunk(h, 1))
	assert.True(t, LineChangedInHunk(h, 2))
}

func TestChangedInAny(t *testing.T) {
	hunks := parseTwoHunks(t)
	assert.True(t, ChangedInAny(hunks, 43))
	assert.False(t, ChangedInAny(hunks, 42))
	assert.False(t, ChangedInAny(hunks, 30))
	assert.False(t, ChangedInAny(nil, 1))
}

func TestLinesInSameHunk(t *testing.T) {
	hunks := parseTwoHunks(t)

	assert.True(t, LinesInSameHunk(hunks, 11, 16))
	assert.True(t, LinesInSameHunk(hunks, 42, 45))
	assert.False(t, LinesInSameHunk(hunks, 14, 43))
	assert.False(t, LinesInSameHunk(hunks, 16, 17))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "context", Context.String())
}
