// Command promopost runs the listing-promotion pipeline: it drafts post copy
// for each listing, uploads media, publishes to the target site through a
// browser session, and records every outcome in the run ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"

	"github.com/propline/promopost/internal/app"
	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/recorder"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	// Secrets may come from a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "run":
		os.Exit(runCmd(os.Args[2:], false))
	case "schedule":
		os.Exit(runCmd(os.Args[2:], true))
	case "export":
		os.Exit(exportCmd(os.Args[2:]))
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: promopost open <config|report>")
			os.Exit(2)
		}
		os.Exit(openCmd(os.Args[2]))
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Println("Usage: promopost <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run -items <file.csv>       Run the promotion pipeline once")
	fmt.Println("  schedule -items <file.csv>  Run the pipeline daily at -at HH:MM")
	fmt.Println("  export [-out <file.csv>]    Export the run ledger as CSV")
	fmt.Println("  open config                 Open the config file")
	fmt.Println("  open report                 Open the latest run report")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				slog.Warn("could not save default config", "error", err)
			} else {
				path, _ := config.ConfigPath()
				slog.Info("created default config", "path", path)
			}
		} else {
			slog.Warn("could not load config, using defaults", "error", err)
			cfg = config.Default()
		}
	}
	return cfg
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// interrupted run still finalizes its report.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runCmd(args []string, scheduled bool) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	itemsPath := fs.String("items", "", "path to the listings CSV")
	mediaDir := fs.String("media", "", "directory media paths resolve against")
	at := fs.String("at", "09:00", "daily run time for schedule mode (HH:MM)")
	fs.Parse(args)

	if *itemsPath == "" {
		fmt.Println("promopost: -items is required")
		return 2
	}

	a, err := app.New(loadConfig(), config.SecretsFromEnv())
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if scheduled {
		if err := a.Schedule(ctx, *at, *itemsPath, *mediaDir); err != nil && ctx.Err() == nil {
			slog.Error("scheduler failed", "error", err)
			return 1
		}
		return 0
	}

	report, err := a.RunOnce(ctx, *itemsPath, *mediaDir)
	if err != nil {
		slog.Error("run failed", "error", err)
		return 1
	}

	fmt.Printf("\nRun %s: %d published, %d failed, %d unconfirmed, %d not attempted, %d cancelled (%s)\n",
		report.RunID, report.Published, report.Failed, report.Unconfirmed,
		report.NotAttempted, report.Cancelled, report.Span().Round(time.Second))

	// Any item not safely known to be published makes the run non-clean.
	if !report.Clean() {
		return 1
	}
	return 0
}

func exportCmd(args []string) int {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output CSV path")
	fs.Parse(args)

	path := *out
	if path == "" {
		var err error
		path, err = recorder.DefaultExportPath()
		if err != nil {
			slog.Error("failed to resolve export path", "error", err)
			return 1
		}
	}

	a, err := app.New(loadConfig(), config.SecretsFromEnv())
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	if err := a.ExportLedger(context.Background(), path); err != nil {
		slog.Error("export failed", "error", err)
		return 1
	}

	fmt.Printf("Ledger exported to %s\n", path)
	return 0
}

func openCmd(target string) int {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "report":
		path, err = recorder.LatestReportFile()
	default:
		fmt.Printf("Unknown target: %s\n", target)
		return 2
	}
	if err != nil {
		slog.Error("failed to resolve path", "error", err)
		return 1
	}

	if target == "report" {
		r, loadErr := recorder.LoadReportFile(path)
		if loadErr != nil {
			slog.Error("failed to read archived report", "path", path, "error", loadErr)
			return 1
		}
		fmt.Printf("Run %s: %d published, %d need attention (%d items)\n",
			r.RunID, r.Published, len(r.Items)-r.Published, len(r.Items))
	}

	if err := browser.OpenFile(path); err != nil {
		slog.Error("failed to open", "path", path, "error", err)
		return 1
	}
	return 0
}
