// Package roster loads the list of people expected in a photo set.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoNameColumn is returned when a CSV roster has no "name" column.
	ErrNoNameColumn = errors.New("roster has no name column")
	// ErrEmpty is returned when a roster yields no names.
	ErrEmpty = errors.New("roster contains no names")
)

// Roster is an ordered list of unique, non-empty names.
type Roster []string

// Options controls CSV parsing.
type Options struct {
	FirstLast bool // join the first two columns as "First Last" instead of using "name"
	SkipRows  int  // leading rows to skip before the header
}

// yamlRoster is the on-disk YAML format.
type yamlRoster struct {
	Names []string `yaml:"names"`
}

// Load reads a roster from a CSV or YAML file, chosen by extension.
func Load(path string, opts Options) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	default:
		return ParseCSV(f, opts)
	}
}

// ParseYAML reads a roster of the form `names: [...]`.
func ParseYAML(r io.Reader) (Roster, error) {
	var doc yamlRoster
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return build(doc.Names)
}

// ParseCSV reads a roster from CSV. The header is matched case-insensitively.
func ParseCSV(r io.Reader, opts Options) (Roster, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEmpty
			}
			return nil, fmt.Errorf("failed to skip row %d: %w", i+1, err)
		}
	}

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	nameCol := -1
	if !opts.FirstLast {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), "name") {
				nameCol = i
				break
			}
		}
		if nameCol < 0 {
			return nil, ErrNoNameColumn
		}
	}

	var names []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read roster: %w", err)
		}

		if opts.FirstLast {
			names = append(names, joinFirstLast(record))
			continue
		}
		if nameCol < len(record) {
			names = append(names, record[nameCol])
		}
	}

	return build(names)
}

func joinFirstLast(record []string) string {
	parts := make([]string, 0, 2)
	for i := 0; i < 2 && i < len(record); i++ {
		if p := strings.TrimSpace(record[i]); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// build trims names, drops empty ones and keeps the first occurrence of duplicates.
func build(raw []string) (Roster, error) {
	seen := make(map[string]struct{}, len(raw))
	names := make(Roster, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil, ErrEmpty
	}
	return names, nil
}
