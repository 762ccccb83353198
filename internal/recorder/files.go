package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/types"
)

// ReportsDir returns the directory where JSON run reports are archived.
func ReportsDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "reports"), nil
}

// SaveReportFile writes a run report as a timestamped JSON artifact and
// returns the path to the saved file.
func SaveReportFile(report *types.RunReport) (string, error) {
	dir, err := ReportsDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	filename := report.StartedAt.Format("2006-01-02T15-04-05") + ".json"
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}

	return path, nil
}

// LatestReportFile returns the path to the most recent archived report.
// os.ReadDir sorts by name, which is chronological for our timestamps.
func LatestReportFile() (string, error) {
	dir, err := ReportsDir()
	if err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no archived run reports")
		}
		return "", err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no archived run reports")
	}

	return filepath.Join(dir, files[len(files)-1]), nil
}

// LoadReportFile reads a run report artifact from a specific path.
func LoadReportFile(path string) (*types.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run report: %w", err)
	}

	var report types.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run report: %w", err)
	}
	return &report, nil
}

// DefaultDBPath returns the default ledger database path.
func DefaultDBPath() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// DefaultExportPath returns a timestamped CSV export path in the cache dir.
func DefaultExportPath() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	name := "ledger-" + time.Now().Format("2006-01-02") + ".csv"
	return filepath.Join(cacheDir, name), nil
}
