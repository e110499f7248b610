package ledger

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	l, err := New(context.Background(), db)
	require.NoError(t, err)
	return l
}

func TestTouchCountsSubmissions(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	n, err := l.SeenCount(ctx, "item", "scaleimage")
	require.NoError(t, err)
	assert.Zero(t, n)

	for want := 1; want <= 3; want++ {
		n, err := l.Touch(ctx, "item", "scaleimage")
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	n, err = l.Touch(ctx, "item", "extracttext")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = l.SeenCount(ctx, "item", "scaleimage")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordAndEntries(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{RunID: "run-1", Task: "scaleimage", ItemID: "i", SourceName: "a.tif", DerivativeName: "a.tif.jpg",
			Outcome: OutcomeFiltered, Digest: Digest([]byte("a")), RecordedAt: base},
		{RunID: "run-1", Task: "scaleimage", ItemID: "i", SourceName: "b.tif", DerivativeName: "b.tif.jpg",
			Outcome: OutcomeFailed, Detail: "image decode failed", RecordedAt: base.Add(time.Second)},
		{RunID: "run-2", Task: "scaleimage", ItemID: "j", SourceName: "c.tif", DerivativeName: "c.tif.jpg",
			Outcome: OutcomeFiltered, RecordedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, l.Record(ctx, e))
	}

	got, err := l.Entries(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, entries[:2], got)

	got, err = l.Entries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDigest(t *testing.T) {
	h := NewDigest()
	_, err := io.Copy(h, strings.NewReader("derivative bytes"))
	require.NoError(t, err)

	assert.Equal(t, Digest([]byte("derivative bytes")), HexDigest(h))
	assert.Len(t, Digest(nil), 64)
	assert.NotEqual(t, Digest([]byte("a")), Digest([]byte("b")))
}
