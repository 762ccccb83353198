// Package app wires configuration, collaborators, and the pipeline into
// runnable promotion flows.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/content"
	"github.com/propline/promopost/internal/media"
	"github.com/propline/promopost/internal/notifier"
	"github.com/propline/promopost/internal/pipeline"
	"github.com/propline/promopost/internal/publisher"
	"github.com/propline/promopost/internal/recorder"
	"github.com/propline/promopost/internal/report"
	"github.com/propline/promopost/internal/scheduler"
	"github.com/propline/promopost/internal/selector"
	"github.com/propline/promopost/internal/session"
	"github.com/propline/promopost/internal/source"
	"github.com/propline/promopost/internal/types"
)

// App holds the long-lived application state.
type App struct {
	cfg     *config.Config
	secrets config.Secrets
	store   *recorder.Store
	log     *slog.Logger
}

// New opens the run ledger and returns an App.
func New(cfg *config.Config, secrets config.Secrets) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath, err := recorder.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	store, err := recorder.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	return &App{
		cfg:     cfg,
		secrets: secrets,
		store:   store,
		log:     slog.With(slog.String("component", "app")),
	}, nil
}

// Close releases the ledger.
func (a *App) Close() error {
	return a.store.Close()
}

// Registry builds the selector registry, applying configured overrides, and
// verifies every role the publisher needs has candidates.
func (a *App) Registry() (selector.Registry, error) {
	registry := selector.DefaultRegistry()
	if path := a.cfg.Site.SelectorOverrides; path != "" {
		if err := registry.LoadOverrides(path); err != nil {
			return nil, fmt.Errorf("failed to load selector overrides: %w", err)
		}
	}
	if err := registry.Verify(selector.AllRoles()...); err != nil {
		return nil, err
	}
	return registry, nil
}

// RunOnce executes one full promotion run over the items in itemsPath and
// returns the finalized report. Media paths in the CSV resolve against
// mediaDir when it is non-empty.
func (a *App) RunOnce(ctx context.Context, itemsPath, mediaDir string) (*types.RunReport, error) {
	items, err := source.LoadCSV(itemsPath, mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}

	if a.cfg.Run.SkipPublished {
		items, err = a.filterPublished(ctx, items)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			a.log.Info("all items already published, nothing to do")
			return &types.RunReport{RunID: uuid.NewString()}, nil
		}
	}

	generator, err := content.New(a.cfg.Content, a.secrets.AnthropicKey)
	if err != nil {
		return nil, err
	}

	var mediaHost pipeline.MediaHost
	if a.cfg.MediaHost.UploadURL != "" {
		host, err := media.New(a.cfg.MediaHost, a.secrets.MediaHostKey)
		if err != nil {
			return nil, err
		}
		mediaHost = host
	}

	registry, err := a.Registry()
	if err != nil {
		return nil, err
	}

	drv := session.NewChromedpDriver(ctx, a.cfg.Site.Headless)
	resolver := selector.NewResolver(registry, drv.ProbeFunc())

	cookiePath, err := session.DefaultCookieStorePath()
	if err != nil {
		return nil, err
	}
	cookies := session.NewCookieStore(cookiePath, siteDomain(a.cfg.Site.ComposeURL))

	sess := session.New(drv, resolver, cookies, session.Config{
		LoginURL:        a.cfg.Site.LoginURL,
		ComposeURL:      a.cfg.Site.ComposeURL,
		SelectorTimeout: a.cfg.Run.SelectorTimeout(),
		LoginTimeout:    a.cfg.Run.LoginTimeout(),
	})
	defer sess.Close()

	pub := publisher.New(resolver, publisher.Config{
		ComposeURL: a.cfg.Site.ComposeURL,
		Credentials: session.Credentials{
			Username: a.cfg.Site.Username,
			Password: a.secrets.SitePassword,
		},
		SelectorTimeout: a.cfg.Run.SelectorTimeout(),
		ConfirmTimeout:  a.cfg.Run.ConfirmTimeout(),
	})

	runID := uuid.NewString()
	orch := pipeline.New(generator, mediaHost, a.store.ForRun(runID), pub, sess, pipeline.Policy{
		RunID:     runID,
		ItemDelay: a.cfg.Run.ItemDelay(),
	})

	runReport := orch.Run(ctx, items)
	a.archive(ctx, runReport)
	return runReport, nil
}

// filterPublished drops items with a confirmed publish in a prior run.
func (a *App) filterPublished(ctx context.Context, items []types.ListingItem) ([]types.ListingItem, error) {
	published, err := a.store.PublishedItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query published items: %w", err)
	}

	kept := items[:0]
	for _, item := range items {
		if published[item.ID] {
			a.log.Info("skipping already-published item", "item", item.ID)
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// archive persists the report to the ledger and the artifact dir, and sends
// the email summary when configured. Archival failures are logged, never
// fatal: the report itself is already in the caller's hands.
func (a *App) archive(ctx context.Context, runReport *types.RunReport) {
	if err := a.store.SaveReport(ctx, runReport); err != nil {
		a.log.Error("failed to save report to ledger", "error", err)
	}

	if path, err := recorder.SaveReportFile(runReport); err != nil {
		a.log.Error("failed to archive report file", "error", err)
	} else {
		a.log.Info("archived run report", "path", path)
	}

	builder, err := report.New()
	if err != nil {
		a.log.Error("failed to build report renderer", "error", err)
		return
	}
	summary, err := builder.Build(runReport)
	if err != nil {
		a.log.Error("failed to render report", "error", err)
		return
	}

	if a.cfg.Email.Enabled {
		n := notifier.NewFromConfig(a.cfg.Email, a.secrets.SMTPPassword)
		if err := n.SendSummary(summary); err != nil {
			a.log.Error("failed to email run summary", "error", err)
		}
	}
}

// Schedule runs the promotion daily at the configured time until ctx ends.
func (a *App) Schedule(ctx context.Context, timeStr, itemsPath, mediaDir string) error {
	sched, err := scheduler.New(a.cfg.Run.Timezone)
	if err != nil {
		return err
	}

	err = sched.AddPromotionJob("promote", timeStr, func(jobCtx context.Context) error {
		runReport, err := a.RunOnce(jobCtx, itemsPath, mediaDir)
		if err != nil {
			return err
		}
		if !runReport.Clean() {
			return fmt.Errorf("run %s finished with %d item(s) needing attention",
				runReport.RunID, len(runReport.Items)-runReport.Published)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	return ctx.Err()
}

// ExportLedger writes the full ledger as CSV to path.
func (a *App) ExportLedger(ctx context.Context, path string) error {
	return a.store.ExportCSV(ctx, path)
}

// siteDomain extracts the cookie domain from the compose URL.
func siteDomain(composeURL string) string {
	u, err := url.Parse(composeURL)
	if err != nil || u.Host == "" {
		return composeURL
	}
	host := u.Hostname()
	// Cookies are usually set on the registrable domain, not the www host.
	if len(host) > 4 && host[:4] == "www." {
		host = host[4:]
	}
	return host
}
