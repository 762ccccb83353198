package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propline/promopost/internal/session"
	"github.com/propline/promopost/internal/types"
)

// calls records the cross-collaborator invocation order for one run.
type calls struct {
	seq []string
}

func (c *calls) add(stage, itemID string) {
	c.seq = append(c.seq, fmt.Sprintf("%s:%s", stage, itemID))
}

type stubContent struct {
	calls *calls
	fail  map[string]error
}

func (s *stubContent) Draft(ctx context.Context, item types.ListingItem) (types.ContentDraft, error) {
	s.calls.add("draft", item.ID)
	if err := s.fail[item.ID]; err != nil {
		return types.ContentDraft{}, err
	}
	return types.ContentDraft{ItemID: item.ID, Text: "copy for " + item.Address}, nil
}

type stubMedia struct {
	calls  *calls
	assets []types.MediaAsset
	err    error
}

func (s *stubMedia) Upload(ctx context.Context, paths []string) ([]types.MediaAsset, error) {
	s.calls.add("media", fmt.Sprintf("%d", len(paths)))
	return s.assets, s.err
}

type stubLedger struct {
	calls    *calls
	err      error
	recorded []types.StageOutcome
}

func (s *stubLedger) Record(ctx context.Context, item types.ListingItem, outcome types.StageOutcome) error {
	s.calls.add("log", item.ID)
	s.recorded = append(s.recorded, outcome)
	return s.err
}

type stubPublisher struct {
	calls    *calls
	outcomes map[string]types.StageOutcome
	media    map[string][]types.MediaAsset
	onItem   func(itemID string)
}

func (s *stubPublisher) Publish(ctx context.Context, sess *session.Session, item types.ListingItem, draft types.ContentDraft, media []types.MediaAsset) types.StageOutcome {
	s.calls.add("publish", item.ID)
	if s.media != nil {
		s.media[item.ID] = media
	}
	if s.onItem != nil {
		s.onItem(item.ID)
	}
	if out, ok := s.outcomes[item.ID]; ok {
		return out
	}
	return types.StageOutcome{Stage: types.StagePublish, Succeeded: true, PostRef: "https://site.example/posts/" + item.ID, RecordedAt: time.Now()}
}

func testItems(n int) []types.ListingItem {
	items := make([]types.ListingItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, types.ListingItem{
			ID:      fmt.Sprintf("lst-%d", i),
			Address: fmt.Sprintf("%d Main St", i),
			Price:   "$400,000",
		})
	}
	return items
}

// testSession returns a session that stub publishers never touch.
func testSession() *session.Session {
	return session.New(nil, nil, nil, session.Config{})
}

type fixture struct {
	calls   *calls
	content *stubContent
	media   *stubMedia
	ledger  *stubLedger
	pub     *stubPublisher
}

func newFixture() *fixture {
	c := &calls{}
	return &fixture{
		calls:   c,
		content: &stubContent{calls: c, fail: map[string]error{}},
		media:   &stubMedia{calls: c},
		ledger:  &stubLedger{calls: c},
		pub:     &stubPublisher{calls: c, outcomes: map[string]types.StageOutcome{}, media: map[string][]types.MediaAsset{}},
	}
}

func (f *fixture) orchestrator(policy Policy) *Orchestrator {
	return New(f.content, f.media, f.ledger, f.pub, testSession(), policy)
}

func TestRunStageOrdering(t *testing.T) {
	f := newFixture()
	orch := f.orchestrator(Policy{})

	items := testItems(1)
	items[0].MediaPaths = []string{"/photos/a.jpg"}

	report := orch.Run(context.Background(), items)

	assert.Equal(t, []string{"draft:lst-1", "media:1", "publish:lst-1", "log:lst-1"}, f.calls.seq)
	require.Len(t, report.Items, 1)
	assert.Equal(t, types.ItemPublished, report.Items[0].Status)
	assert.Equal(t, "https://site.example/posts/lst-1", report.Items[0].PostRef)
	assert.Equal(t, 1, report.Published)
	assert.True(t, report.Clean())
}

func TestRunDraftFailureSkipsOnlyThatItem(t *testing.T) {
	f := newFixture()
	f.content.fail["lst-2"] = errors.New("model overloaded")
	orch := f.orchestrator(Policy{})

	report := orch.Run(context.Background(), testItems(3))

	require.Len(t, report.Items, 3)
	assert.Equal(t, types.ItemPublished, report.Items[0].Status)
	assert.Equal(t, types.ItemFailed, report.Items[1].Status)
	assert.Equal(t, types.ItemPublished, report.Items[2].Status)

	// No publish attempt was made for the item whose draft failed.
	assert.NotContains(t, f.calls.seq, "publish:lst-2")
	assert.Contains(t, f.calls.seq, "publish:lst-3")

	assert.Equal(t, 2, report.Published)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Clean())
}

func TestRunFatalFailureStopsRemainingItems(t *testing.T) {
	f := newFixture()
	f.pub.outcomes["lst-1"] = types.StageOutcome{
		Stage: types.StagePublish, Succeeded: false, Fatal: true,
		Detail: "authentication failed", RecordedAt: time.Now(),
	}
	orch := f.orchestrator(Policy{})

	report := orch.Run(context.Background(), testItems(3))

	require.Len(t, report.Items, 3)
	assert.Equal(t, types.ItemFailed, report.Items[0].Status)
	assert.Equal(t, types.ItemNotAttempted, report.Items[1].Status)
	assert.Equal(t, types.ItemNotAttempted, report.Items[2].Status)

	// Nothing beyond the fatal item ran, not even drafting.
	assert.NotContains(t, f.calls.seq, "draft:lst-2")
	assert.NotContains(t, f.calls.seq, "draft:lst-3")

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.NotAttempted)
	assert.False(t, report.Clean())
}

func TestRunMediaFailureStillPublishesWithPartialAssets(t *testing.T) {
	f := newFixture()
	f.media.assets = []types.MediaAsset{{LocalPath: "/photos/a.jpg", HostedURL: "https://img.example/a.jpg"}}
	f.media.err = errors.New("b.jpg: upload rejected")
	orch := f.orchestrator(Policy{})

	items := testItems(1)
	items[0].MediaPaths = []string{"/photos/a.jpg", "/photos/b.jpg"}

	report := orch.Run(context.Background(), items)

	require.Len(t, report.Items, 1)
	result := report.Items[0]
	assert.Equal(t, types.ItemPublished, result.Status)

	// The partial assets reached the publisher.
	require.Len(t, f.pub.media["lst-1"], 1)
	assert.Equal(t, "/photos/a.jpg", f.pub.media["lst-1"][0].LocalPath)

	// The degraded media stage is on the record.
	var mediaOutcome *types.StageOutcome
	for i := range result.Stages {
		if result.Stages[i].Stage == types.StageMedia {
			mediaOutcome = &result.Stages[i]
		}
	}
	require.NotNil(t, mediaOutcome)
	assert.False(t, mediaOutcome.Succeeded)
	assert.Contains(t, mediaOutcome.Detail, "1/2 uploaded")
}

func TestRunMediaStageSkippedWithoutPaths(t *testing.T) {
	f := newFixture()
	orch := f.orchestrator(Policy{})

	report := orch.Run(context.Background(), testItems(1))

	assert.NotContains(t, f.calls.seq, "media:0")
	for _, stage := range report.Items[0].Stages {
		assert.NotEqual(t, types.StageMedia, stage.Stage)
	}
	assert.Equal(t, types.ItemPublished, report.Items[0].Status)
}

func TestRunLedgerFailureDoesNotAlterPublishOutcome(t *testing.T) {
	f := newFixture()
	f.ledger.err = errors.New("database is locked")
	orch := f.orchestrator(Policy{})

	report := orch.Run(context.Background(), testItems(1))

	require.Len(t, report.Items, 1)
	result := report.Items[0]
	assert.Equal(t, types.ItemPublished, result.Status, "a logging failure never demotes a publish")

	last := result.Stages[len(result.Stages)-1]
	assert.Equal(t, types.StageLog, last.Stage)
	assert.False(t, last.Succeeded)
	assert.Equal(t, 1, report.Published)
}

func TestRunLedgerNotCalledForFailedPublish(t *testing.T) {
	f := newFixture()
	f.pub.outcomes["lst-1"] = types.StageOutcome{
		Stage: types.StagePublish, Succeeded: false, Detail: "composer unavailable", RecordedAt: time.Now(),
	}
	orch := f.orchestrator(Policy{})

	orch.Run(context.Background(), testItems(1))

	assert.NotContains(t, f.calls.seq, "log:lst-1")
}

func TestRunUnconfirmedSubmissionIsNotClean(t *testing.T) {
	f := newFixture()
	f.pub.outcomes["lst-1"] = types.StageOutcome{
		Stage: types.StagePublish, Succeeded: false, Unconfirmed: true,
		Detail: "no confirmation indicator", RecordedAt: time.Now(),
	}
	orch := f.orchestrator(Policy{})

	report := orch.Run(context.Background(), testItems(2))

	assert.Equal(t, types.ItemUnconfirmed, report.Items[0].Status)
	assert.Equal(t, types.ItemPublished, report.Items[1].Status)
	assert.Equal(t, 1, report.Unconfirmed)
	assert.False(t, report.Clean(), "unconfirmed is not safely known to be published")

	// Unconfirmed is item-scoped; the run continued.
	assert.Contains(t, f.calls.seq, "publish:lst-2")
}

func TestRunPacingBetweenItems(t *testing.T) {
	f := newFixture()
	delay := 30 * time.Millisecond
	orch := f.orchestrator(Policy{ItemDelay: delay})

	start := time.Now()
	report := orch.Run(context.Background(), testItems(3))
	elapsed := time.Since(start)

	// Two gaps between three items; no pacing after the last one.
	assert.GreaterOrEqual(t, elapsed, 2*delay)
	assert.Less(t, elapsed, 10*delay)
	assert.Equal(t, 3, report.Published)
}

func TestRunCancellationMarksRemainingItems(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.pub.onItem = func(itemID string) {
		if itemID == "lst-1" {
			cancel()
		}
	}
	orch := f.orchestrator(Policy{ItemDelay: 10 * time.Millisecond})

	report := orch.Run(ctx, testItems(3))

	require.Len(t, report.Items, 3)
	assert.Equal(t, types.ItemPublished, report.Items[0].Status)
	assert.Equal(t, types.ItemCancelled, report.Items[1].Status)
	assert.Equal(t, types.ItemCancelled, report.Items[2].Status)
	assert.Equal(t, 2, report.Cancelled)
	assert.False(t, report.Clean())
}

func TestRunNilCollaboratorsAreSkipped(t *testing.T) {
	c := &calls{}
	content := &stubContent{calls: c, fail: map[string]error{}}
	pub := &stubPublisher{calls: c, outcomes: map[string]types.StageOutcome{}}
	orch := New(content, nil, nil, pub, testSession(), Policy{})

	items := testItems(1)
	items[0].MediaPaths = []string{"/photos/a.jpg"}

	report := orch.Run(context.Background(), items)

	assert.Equal(t, []string{"draft:lst-1", "publish:lst-1"}, c.seq)
	assert.Equal(t, types.ItemPublished, report.Items[0].Status)
}

func TestRunReportIdentity(t *testing.T) {
	f := newFixture()

	named := f.orchestrator(Policy{RunID: "run-2026-08-28"})
	report := named.Run(context.Background(), testItems(1))
	assert.Equal(t, "run-2026-08-28", report.RunID)

	anon := f.orchestrator(Policy{})
	report = anon.Run(context.Background(), nil)
	assert.NotEmpty(t, report.RunID, "an unnamed run still gets an identity")
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}
