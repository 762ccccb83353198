package pipeline

import (
	"context"

	"github.com/propline/promopost/internal/session"
	"github.com/propline/promopost/internal/types"
)

// ContentGenerator drafts post copy for one item. Any error is item-fatal.
type ContentGenerator interface {
	Draft(ctx context.Context, item types.ListingItem) (types.ContentDraft, error)
}

// MediaHost uploads local media and returns hosted assets. Partial results
// are accepted: whatever succeeded is returned alongside an error describing
// the paths that failed.
type MediaHost interface {
	Upload(ctx context.Context, paths []string) ([]types.MediaAsset, error)
}

// RunLogger records the publish outcome for one item in the external ledger.
// A logging failure never rolls back or retries the publish.
type RunLogger interface {
	Record(ctx context.Context, item types.ListingItem, outcome types.StageOutcome) error
}

// Publisher performs one end-to-end publish through the shared session.
type Publisher interface {
	Publish(ctx context.Context, sess *session.Session, item types.ListingItem, draft types.ContentDraft, media []types.MediaAsset) types.StageOutcome
}
