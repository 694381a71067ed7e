// Package products loads the per-site product input list.
package products

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pricescout/internal/pricing"
)

// Filename returns the conventional input list name for a site.
func Filename(site string) string {
	return site + "_input_list.jsonl"
}

// Resolve returns the input list path for a site under dataDir.
func Resolve(dataDir, site string) string {
	return filepath.Join(dataDir, Filename(site))
}

// Load reads a JSON Lines product list. Each line is one product; blank
// lines are skipped. The whole file is validated before any crawl starts, so
// a bad line fails the run up front with its line number.
func Load(path string) ([]pricing.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open product list: %w", err)
	}
	defer f.Close()

	var products []pricing.Product
	seen := make(map[string]int)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var p pricing.Product
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("product list line %d: %w", lineNo, err)
		}
		if err := validate(p); err != nil {
			return nil, fmt.Errorf("product list line %d: %w", lineNo, err)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("product list line %d: duplicate product id %q (first seen on line %d)", lineNo, p.ID, prev)
		}
		seen[p.ID] = lineNo
		products = append(products, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read product list: %w", err)
	}
	return products, nil
}

func validate(p pricing.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product %q: name is required", p.ID)
	}
	if p.Reference == nil && len(p.Competitors) == 0 {
		return fmt.Errorf("product %q: at least one channel url is required", p.ID)
	}
	if p.Reference != nil && strings.TrimSpace(p.Reference.URL) == "" {
		return fmt.Errorf("product %q: reference url is required", p.ID)
	}
	for i, c := range p.Competitors {
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("product %q: competitor %d url is required", p.ID, i+1)
		}
	}
	return nil
}
