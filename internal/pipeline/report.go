package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/propline/promopost/internal/types"
)

// newRunReport creates an empty report at run start. The caller may supply
// the run ID so the ledger and the report agree on it.
func newRunReport(runID string) *types.RunReport {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &types.RunReport{
		RunID:     runID,
		StartedAt: time.Now(),
	}
}

// finalize stamps the end time and tallies per-status counts. The report is
// immutable once the run ends.
func finalize(r *types.RunReport) {
	for _, item := range r.Items {
		switch item.Status {
		case types.ItemPublished:
			r.Published++
		case types.ItemFailed:
			r.Failed++
		case types.ItemUnconfirmed:
			r.Unconfirmed++
		case types.ItemNotAttempted:
			r.NotAttempted++
		case types.ItemCancelled:
			r.Cancelled++
		}
	}
	r.FinishedAt = time.Now()
}
