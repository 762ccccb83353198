package recorder

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propline/promopost/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func item(id, address string) types.ListingItem {
	return types.ListingItem{ID: id, Address: address, Price: "$400,000"}
}

func publishOutcome(succeeded bool) types.StageOutcome {
	out := types.StageOutcome{
		Stage:      types.StagePublish,
		Succeeded:  succeeded,
		RecordedAt: time.Now().UTC(),
	}
	if succeeded {
		out.Detail = "published"
		out.PostRef = "https://site.example/posts/1"
	} else {
		out.Detail = "composer unavailable"
	}
	return out
}

func TestRecordAndPublishedItemIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	rec := store.ForRun("run-1")

	require.NoError(t, rec.Record(ctx, item("lst-1", "12 Elm St"), publishOutcome(true)))
	require.NoError(t, rec.Record(ctx, item("lst-2", "9 Oak Ave"), publishOutcome(false)))

	unconfirmed := publishOutcome(false)
	unconfirmed.Unconfirmed = true
	require.NoError(t, rec.Record(ctx, item("lst-3", "3 Pine Rd"), unconfirmed))

	ids, err := store.PublishedItemIDs(ctx)
	require.NoError(t, err)

	assert.True(t, ids["lst-1"])
	assert.False(t, ids["lst-2"], "a failed publish is not published")
	assert.False(t, ids["lst-3"], "an unconfirmed submission is not safely published")
}

func TestPublishedItemIDsSpanRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ForRun("run-1").Record(ctx, item("lst-1", "12 Elm St"), publishOutcome(true)))
	require.NoError(t, store.ForRun("run-2").Record(ctx, item("lst-2", "9 Oak Ave"), publishOutcome(true)))

	ids, err := store.PublishedItemIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestSaveReportSkipsLiveRecordedPublishRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	pub := publishOutcome(true)
	require.NoError(t, store.ForRun("run-1").Record(ctx, item("lst-1", "12 Elm St"), pub))

	report := &types.RunReport{
		RunID:      "run-1",
		StartedAt:  time.Now().UTC().Add(-time.Minute),
		FinishedAt: time.Now().UTC(),
		Published:  1,
		Items: []types.ItemResult{{
			Item:   item("lst-1", "12 Elm St"),
			Status: types.ItemPublished,
			Stages: []types.StageOutcome{
				{Stage: types.StageDraft, Succeeded: true, Detail: "drafted", RecordedAt: time.Now().UTC()},
				pub,
				{Stage: types.StageLog, Succeeded: true, Detail: "recorded", RecordedAt: time.Now().UTC()},
			},
		}},
	}
	require.NoError(t, store.SaveReport(ctx, report))

	var publishRows int
	err := store.db.QueryRow(
		`SELECT COUNT(*) FROM outcomes WHERE item_id = 'lst-1' AND stage = 'publish'`,
	).Scan(&publishRows)
	require.NoError(t, err)
	assert.Equal(t, 1, publishRows, "the live-recorded publish row is not duplicated")

	var total int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM outcomes`).Scan(&total))
	assert.Equal(t, 3, total)
}

func TestSaveReportUpsertsRunHeader(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := &types.RunReport{RunID: "run-1", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(), Published: 1}
	require.NoError(t, store.SaveReport(ctx, report))

	report.Published = 2
	require.NoError(t, store.SaveReport(ctx, report), "saving the same run twice must not conflict")

	var published int
	require.NoError(t, store.db.QueryRow(`SELECT published FROM runs WHERE id = 'run-1'`).Scan(&published))
	assert.Equal(t, 2, published)
}

func TestExportCSV(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ForRun("run-1").Record(ctx, item("lst-1", "12 Elm St"), publishOutcome(true)))
	require.NoError(t, store.ForRun("run-1").Record(ctx, item("lst-2", "9 Oak Ave"), publishOutcome(false)))

	out := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, store.ExportCSV(ctx, out))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "run_id", records[0][0])
	assert.Equal(t, "lst-1", records[1][1])
	assert.Equal(t, "true", records[1][4])
	assert.Equal(t, "lst-2", records[2][1])
	assert.Equal(t, "false", records[2][4])
}

func TestStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")
	store, err := New(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
