// Package publisher performs one end-to-end "publish one item" operation
// against the target site, driving the publish session from Composing through
// Published. All element location goes through the selector resolver; nothing
// here hard-codes a locator.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/propline/promopost/internal/selector"
	"github.com/propline/promopost/internal/session"
	"github.com/propline/promopost/internal/types"
)

// Config carries the publisher's endpoints and timing bounds.
type Config struct {
	ComposeURL      string
	Credentials     session.Credentials
	SelectorTimeout time.Duration
	ConfirmTimeout  time.Duration
	// AttachSettle is the short wait after each media attachment for the
	// site to ingest the file.
	AttachSettle time.Duration
	// ConfirmPoll is the interval between confirmation probes.
	ConfirmPoll time.Duration
}

// Publisher publishes drafted content through a publish session.
type Publisher struct {
	resolver *selector.Resolver
	cfg      Config
	log      *slog.Logger
}

// New creates a publisher over the given resolver.
func New(resolver *selector.Resolver, cfg Config) *Publisher {
	if cfg.AttachSettle <= 0 {
		cfg.AttachSettle = 2 * time.Second
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = 500 * time.Millisecond
	}
	// An unset confirmation bound must not expire before the first probe.
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	return &Publisher{
		resolver: resolver,
		cfg:      cfg,
		log:      slog.With(slog.String("component", "publisher")),
	}
}

// Publish drives sess through Composing -> Published for one item. The
// returned outcome is the single record of what happened; no local state is
// kept. An ambiguous submission is never reported as success.
func (p *Publisher) Publish(ctx context.Context, sess *session.Session, item types.ListingItem, draft types.ContentDraft, media []types.MediaAsset) types.StageOutcome {
	log := p.log.With(slog.String("item", item.ID))

	// First use of the session triggers authentication; later items
	// short-circuit here because the session is already Authenticated.
	if err := sess.EnsureAuthenticated(ctx, p.cfg.Credentials); err != nil {
		return fatalOutcome(fmt.Errorf("%w: %v", ErrAuthenticationRequired, err))
	}

	drv := sess.Driver()

	// Reach the content-entry surface.
	if err := sess.Advance(session.StateNavigating); err != nil {
		return p.failItem(sess, err)
	}
	if err := drv.Navigate(ctx, p.cfg.ComposeURL); err != nil {
		return p.failItem(sess, fmt.Errorf("%w: %v", ErrComposerUnavailable, err))
	}

	open, err := p.resolver.Resolve(ctx, selector.RoleComposerOpen, p.cfg.SelectorTimeout)
	if err != nil {
		return p.failItem(sess, fmt.Errorf("%w: %v", ErrComposerUnavailable, err))
	}
	if err := drv.Click(ctx, open.Candidate.Query); err != nil {
		return p.failItem(sess, fmt.Errorf("%w: opening composer: %v", ErrComposerUnavailable, err))
	}

	if err := sess.Advance(session.StateComposing); err != nil {
		return p.failItem(sess, err)
	}

	text, err := p.resolver.Resolve(ctx, selector.RoleComposerText, p.cfg.SelectorTimeout)
	if err != nil {
		return p.failItem(sess, fmt.Errorf("%w: %v", ErrComposerUnavailable, err))
	}
	if err := drv.ClearAndType(ctx, text.Candidate.Query, draft.Text); err != nil {
		return p.failItem(sess, fmt.Errorf("entering draft text: %w", err))
	}

	// Media is optional; per-asset failures are absorbed.
	var attachFailures []string
	if len(media) > 0 {
		if err := sess.Advance(session.StateAttachingMedia); err != nil {
			return p.failItem(sess, err)
		}
		attachFailures = p.attachAll(ctx, drv, log, media)
	}

	if err := sess.Advance(session.StateSubmitting); err != nil {
		return p.failItem(sess, err)
	}

	preURL, _ := drv.Location(ctx)

	submit, err := p.resolver.Resolve(ctx, selector.RoleSubmitButton, p.cfg.SelectorTimeout)
	if err != nil {
		return p.failItem(sess, err)
	}
	if err := drv.Click(ctx, submit.Candidate.Query); err != nil {
		return p.failItem(sess, fmt.Errorf("clicking submit: %w", err))
	}

	postRef, err := p.confirm(ctx, drv, preURL)
	if err != nil {
		log.Warn("submission not confirmed", "error", err)
		return p.failItem(sess, err)
	}

	if err := sess.Advance(session.StatePublished); err != nil {
		return p.failItem(sess, err)
	}
	if err := sess.ResetForNext(); err != nil {
		// The post went out; a reset failure only affects session reuse.
		log.Warn("failed to reset session after publish", "error", err)
	}

	detail := "published"
	if len(attachFailures) > 0 {
		detail = fmt.Sprintf("published without %d attachment(s): %s",
			len(attachFailures), strings.Join(attachFailures, "; "))
	}
	log.Info("publish confirmed", "ref", postRef)

	return types.StageOutcome{
		Stage:      types.StagePublish,
		Succeeded:  true,
		Detail:     detail,
		PostRef:    postRef,
		RecordedAt: time.Now(),
	}
}

// attachAll attaches each asset best-effort with a short settle wait.
// Attachment failure for one asset is logged and skipped.
func (p *Publisher) attachAll(ctx context.Context, drv session.Driver, log *slog.Logger, media []types.MediaAsset) []string {
	var failures []string
	for _, asset := range media {
		if asset.LocalPath == "" {
			continue
		}

		input, err := p.resolver.Resolve(ctx, selector.RoleMediaInput, p.cfg.SelectorTimeout)
		if err == nil {
			err = drv.SetUploadFiles(ctx, input.Candidate.Query, []string{asset.LocalPath})
		}
		if err != nil {
			attachErr := &MediaAttachError{Asset: asset, Err: err}
			log.Warn("media attach failed, continuing", "asset", asset.LocalPath, "error", err)
			failures = append(failures, attachErr.Error())
			continue
		}

		select {
		case <-ctx.Done():
			failures = append(failures, (&MediaAttachError{Asset: asset, Err: ctx.Err()}).Error())
			return failures
		case <-time.After(p.cfg.AttachSettle):
		}
	}
	return failures
}

// confirm polls for a post-submission indicator: either the posted marker
// resolves or the page URL moves off the composer. Absence of confirmation
// within the bound is an error, never a success.
func (p *Publisher) confirm(ctx context.Context, drv session.Driver, preURL string) (string, error) {
	deadline := time.Now().Add(p.cfg.ConfirmTimeout)

	for time.Now().Before(deadline) {
		if _, err := p.resolver.Resolve(ctx, selector.RolePostedMarker, p.cfg.ConfirmPoll*2); err == nil {
			url, _ := drv.Location(ctx)
			if url == "" {
				url = preURL
			}
			return url, nil
		}

		if url, err := drv.Location(ctx); err == nil && url != "" && url != preURL {
			return url, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrSubmissionUnconfirmed, ctx.Err())
		case <-time.After(p.cfg.ConfirmPoll):
		}
	}

	return "", ErrSubmissionUnconfirmed
}

// failItem records an item-scoped failure and reverts the session to
// Authenticated for the next item.
func (p *Publisher) failItem(sess *session.Session, err error) types.StageOutcome {
	sess.FailItem()
	return types.StageOutcome{
		Stage:       types.StagePublish,
		Succeeded:   false,
		Detail:      err.Error(),
		Unconfirmed: errors.Is(err, ErrSubmissionUnconfirmed),
		RecordedAt:  time.Now(),
	}
}

func fatalOutcome(err error) types.StageOutcome {
	return types.StageOutcome{
		Stage:      types.StagePublish,
		Succeeded:  false,
		Detail:     err.Error(),
		Fatal:      true,
		RecordedAt: time.Now(),
	}
}
