// Package source loads listing items from delimited files supplied by the
// back office.
package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/propline/promopost/internal/types"
)

// expected header columns; "features" and "media" are optional.
var requiredColumns = []string{"id", "address", "price"}

// LoadCSV reads listing items from a CSV file. The media column holds
// semicolon-separated local paths resolved relative to mediaDir (or the CSV's
// directory when mediaDir is empty).
func LoadCSV(path, mediaDir string) ([]types.ListingItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if mediaDir == "" {
		mediaDir = filepath.Dir(path)
	}

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var items []types.ListingItem
	seen := make(map[string]bool)
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		item, err := parseRecord(record, cols, mediaDir)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("line %d: duplicate item id %q", line, item.ID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no items in %s", path)
	}
	return items, nil
}

func parseRecord(record []string, cols map[string]int, mediaDir string) (types.ListingItem, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	item := types.ListingItem{
		ID:      field("id"),
		Address: field("address"),
		Price:   field("price"),
	}
	if item.ID == "" {
		return item, fmt.Errorf("empty item id")
	}
	if item.Address == "" {
		return item, fmt.Errorf("empty address for item %q", item.ID)
	}

	if v := field("bedrooms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return item, fmt.Errorf("invalid bedrooms %q: %w", v, err)
		}
		item.Bedrooms = n
	}
	if v := field("bathrooms"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return item, fmt.Errorf("invalid bathrooms %q: %w", v, err)
		}
		item.Bathrooms = n
	}
	if v := field("square_feet"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return item, fmt.Errorf("invalid square_feet %q: %w", v, err)
		}
		item.SquareFeet = n
	}
	if v := field("features"); v != "" {
		for _, feat := range strings.Split(v, ";") {
			if feat = strings.TrimSpace(feat); feat != "" {
				item.Features = append(item.Features, feat)
			}
		}
	}
	if v := field("media"); v != "" {
		for _, p := range strings.Split(v, ";") {
			if p = strings.TrimSpace(p); p == "" {
				continue
			}
			if !filepath.IsAbs(p) {
				p = filepath.Join(mediaDir, p)
			}
			item.MediaPaths = append(item.MediaPaths, p)
		}
	}

	return item, nil
}
