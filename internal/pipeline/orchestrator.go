// Package pipeline sequences the per-item promotion stages, applies the
// failure policy, enforces inter-item pacing, and produces the run report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/propline/promopost/internal/session"
	"github.com/propline/promopost/internal/types"
)

// Policy is the caller-supplied run policy. Delays and bounds live here, not
// hard-coded in the publisher.
type Policy struct {
	// RunID, when set, names the run so the ledger and report agree on it.
	RunID string
	// ItemDelay is the cooperative wait between items, respecting the
	// target site's implicit rate limits. Not applied after the last item.
	ItemDelay    time.Duration
	DraftTimeout time.Duration
	MediaTimeout time.Duration
	LogTimeout   time.Duration
}

// Orchestrator iterates the items to promote, invoking the collaborators and
// the publisher per item. Items are processed strictly sequentially: the
// publish session is a single stateful browser context.
type Orchestrator struct {
	content ContentGenerator
	media   MediaHost
	ledger  RunLogger
	pub     Publisher
	sess    *session.Session
	policy  Policy
	log     *slog.Logger
}

// New creates an orchestrator. media and ledger may be nil when those
// collaborators are not configured; their stages are then skipped as absent
// rather than failed.
func New(content ContentGenerator, media MediaHost, ledger RunLogger, pub Publisher, sess *session.Session, policy Policy) *Orchestrator {
	return &Orchestrator{
		content: content,
		media:   media,
		ledger:  ledger,
		pub:     pub,
		sess:    sess,
		policy:  policy,
		log:     slog.With(slog.String("component", "orchestrator")),
	}
}

// Run processes items sequentially and returns the finalized run report. The
// report is the single source of truth for the operator; every failure in
// every stage lands in it. Cancellation is honored between items and stages.
func (o *Orchestrator) Run(ctx context.Context, items []types.ListingItem) *types.RunReport {
	report := newRunReport(o.policy.RunID)
	o.log.Info("run started", "run_id", report.RunID, "items", len(items))

	runFatal := false
	for i, item := range items {
		if runFatal {
			report.Items = append(report.Items, types.ItemResult{Item: item, Status: types.ItemNotAttempted})
			continue
		}
		if ctx.Err() != nil {
			report.Items = append(report.Items, types.ItemResult{Item: item, Status: types.ItemCancelled})
			continue
		}

		result := o.processItem(ctx, item)
		report.Items = append(report.Items, result)

		for _, stage := range result.Stages {
			if stage.Fatal {
				o.log.Error("run-fatal failure, stopping", "item", item.ID, "detail", stage.Detail)
				runFatal = true
			}
		}

		// Pace before the next item, but never after the last one.
		if i < len(items)-1 && !runFatal {
			if err := o.pace(ctx); err != nil {
				continue // next iteration records the cancellation
			}
		}
	}

	finalize(report)
	o.log.Info("run finished",
		"run_id", report.RunID,
		"published", report.Published,
		"failed", report.Failed,
		"unconfirmed", report.Unconfirmed,
		"not_attempted", report.NotAttempted,
		"cancelled", report.Cancelled,
		"span", report.Span())
	return report
}

// processItem runs draft -> media -> publish -> log for one item. Draft and
// publish failures are item-fatal; media and log failures are stage-local and
// never block the remaining stages of the same item.
func (o *Orchestrator) processItem(ctx context.Context, item types.ListingItem) types.ItemResult {
	log := o.log.With(slog.String("item", item.ID))
	result := types.ItemResult{Item: item}

	// Stage: draft.
	draft, outcome := o.draftStage(ctx, item)
	result.Stages = append(result.Stages, outcome)
	if !outcome.Succeeded {
		log.Error("draft failed, skipping item", "detail", outcome.Detail)
		result.Status = types.ItemFailed
		return result
	}

	if ctx.Err() != nil {
		result.Status = types.ItemCancelled
		return result
	}

	// Stage: media. Best-effort; absence of media must not fail the run.
	var media []types.MediaAsset
	if len(item.MediaPaths) > 0 && o.media != nil {
		media, outcome = o.mediaStage(ctx, item)
		result.Stages = append(result.Stages, outcome)
		if !outcome.Succeeded {
			log.Warn("media stage degraded, publishing anyway", "detail", outcome.Detail)
		}
	}

	if ctx.Err() != nil {
		result.Status = types.ItemCancelled
		return result
	}

	// Stage: publish.
	pubOutcome := o.pub.Publish(ctx, o.sess, item, draft, media)
	result.Stages = append(result.Stages, pubOutcome)
	switch {
	case pubOutcome.Succeeded:
		result.Status = types.ItemPublished
		result.PostRef = pubOutcome.PostRef
	case pubOutcome.Unconfirmed:
		result.Status = types.ItemUnconfirmed
	default:
		result.Status = types.ItemFailed
	}
	if !pubOutcome.Succeeded {
		log.Error("publish failed", "detail", pubOutcome.Detail, "fatal", pubOutcome.Fatal)
		return result
	}

	// Stage: log. Best-effort; a ledger failure never alters the recorded
	// publish outcome.
	if o.ledger != nil {
		result.Stages = append(result.Stages, o.logStage(ctx, item, pubOutcome))
	}

	return result
}

func (o *Orchestrator) draftStage(ctx context.Context, item types.ListingItem) (types.ContentDraft, types.StageOutcome) {
	stageCtx, cancel := withTimeout(ctx, o.policy.DraftTimeout)
	defer cancel()

	draft, err := o.content.Draft(stageCtx, item)
	if err != nil {
		return types.ContentDraft{}, stageFailure(types.StageDraft, err)
	}
	return draft, stageSuccess(types.StageDraft, "drafted")
}

func (o *Orchestrator) mediaStage(ctx context.Context, item types.ListingItem) ([]types.MediaAsset, types.StageOutcome) {
	stageCtx, cancel := withTimeout(ctx, o.policy.MediaTimeout)
	defer cancel()

	assets, err := o.media.Upload(stageCtx, item.MediaPaths)
	if err != nil {
		// Partial results still flow to the publisher.
		out := stageFailure(types.StageMedia, err)
		if len(assets) > 0 {
			out.Detail = fmt.Sprintf("%d/%d uploaded: %v", len(assets), len(item.MediaPaths), err)
		}
		return assets, out
	}
	return assets, stageSuccess(types.StageMedia, fmt.Sprintf("%d uploaded", len(assets)))
}

func (o *Orchestrator) logStage(ctx context.Context, item types.ListingItem, pubOutcome types.StageOutcome) types.StageOutcome {
	stageCtx, cancel := withTimeout(ctx, o.policy.LogTimeout)
	defer cancel()

	if err := o.ledger.Record(stageCtx, item, pubOutcome); err != nil {
		o.log.Warn("result logging failed", "item", item.ID, "error", err)
		return stageFailure(types.StageLog, err)
	}
	return stageSuccess(types.StageLog, "recorded")
}

// pace waits the policy delay cooperatively so cancellation stays responsive.
func (o *Orchestrator) pace(ctx context.Context) error {
	if o.policy.ItemDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(o.policy.ItemDelay):
		return nil
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func stageSuccess(stage types.Stage, detail string) types.StageOutcome {
	return types.StageOutcome{Stage: stage, Succeeded: true, Detail: detail, RecordedAt: time.Now()}
}

func stageFailure(stage types.Stage, err error) types.StageOutcome {
	return types.StageOutcome{Stage: stage, Succeeded: false, Detail: err.Error(), RecordedAt: time.Now()}
}
