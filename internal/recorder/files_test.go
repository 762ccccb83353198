package recorder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propline/promopost/internal/types"
)

func TestLoadReportFileRoundTrip(t *testing.T) {
	report := &types.RunReport{
		RunID:      "run-1",
		StartedAt:  time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 28, 9, 3, 0, 0, time.UTC),
		Published:  1,
		Items: []types.ItemResult{{
			Item:    types.ListingItem{ID: "lst-1", Address: "12 Elm St", Price: "$450,000"},
			Status:  types.ItemPublished,
			PostRef: "https://site.example/posts/1",
		}},
	}

	data, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "2026-08-28T09-00-00.json")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := LoadReportFile(path)
	require.NoError(t, err)
	assert.Equal(t, report, loaded)
}

func TestLoadReportFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadReportFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	_, err = LoadReportFile(bad)
	assert.Error(t, err)
}
