// Command selaudit opens the target site with the same stealth browser
// options as the pipeline and probes every selector role against the live
// page, so candidate sets can be repaired when the site's DOM churns.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/selector"
	"github.com/propline/promopost/internal/session"
)

func main() {
	urlFlag := flag.String("url", "", "page to audit (defaults to the configured login URL)")
	budget := flag.Duration("budget", 8*time.Second, "per-role resolution budget")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		cfg = config.Default()
	}

	target := *urlFlag
	if target == "" {
		target = cfg.Site.LoginURL
	}

	registry := selector.DefaultRegistry()
	if cfg.Site.SelectorOverrides != "" {
		if err := registry.LoadOverrides(cfg.Site.SelectorOverrides); err != nil {
			log.Fatalf("Failed to load selector overrides: %v", err)
		}
	}

	// Non-headless so you can watch what the page actually shows.
	drv := session.NewChromedpDriver(context.Background(), false)
	defer drv.Close()

	resolver := selector.NewResolver(registry, drv.ProbeFunc())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Printf("Navigating to %s...", target)
	if err := drv.Navigate(ctx, target); err != nil {
		log.Fatalf("Failed to navigate: %v", err)
	}

	failures := 0
	for _, role := range selector.AllRoles() {
		// Distinguish a bad override file from a live-page miss.
		if !resolver.Known(role) {
			failures++
			fmt.Printf("MISS  %-28s no candidates registered\n", role)
			continue
		}
		match, err := resolver.Resolve(ctx, role, *budget)
		if err != nil {
			failures++
			fmt.Printf("MISS  %-28s %v\n", role, err)
			continue
		}
		fmt.Printf("OK    %-28s candidate %d (%s) -> %s\n",
			role, match.Index+1, match.Candidate.Name, match.Candidate.Query)
	}

	fmt.Println()
	if failures > 0 {
		fmt.Printf("%d role(s) did not resolve on this page. Roles for other pages\n", failures)
		fmt.Println("(composer vs. login) are expected to miss here; audit both URLs.")
		os.Exit(1)
	}
	fmt.Println("All roles resolved.")
}
