// Package csvcatalog reads the LEGO set catalog from a delimited file whose
// header must match a fixed column schema.
package csvcatalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/timmy/legoreviews/internal/domain"
	"github.com/timmy/legoreviews/internal/source"
)

// Columns is the catalog file schema, in no required order.
var Columns = []string{"Number", "SetName", "Theme", "YearFrom", "PackagingType", "LaunchDate"}

// HeaderError reports a header that does not match Columns.
type HeaderError struct {
	Missing    []string
	Unexpected []string
	Duplicate  []string
}

func (e *HeaderError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate "+strings.Join(e.Duplicate, ", "))
	}
	return "catalog header mismatch: " + strings.Join(parts, "; ")
}

// ErrEmptyNumber is returned for a data row without a set number.
var ErrEmptyNumber = errors.New("catalog row has an empty Number")

// Adapter implements source.CatalogSource for a CSV file.
type Adapter struct {
	path      string
	delimiter rune
	entries   []domain.CatalogEntry
	loaded    bool
}

var _ source.CatalogSource = (*Adapter)(nil)

// NewAdapter creates a catalog adapter for the file at path.
// Parameters:
//   - path: catalog file path.
//   - delimiter: field delimiter; 0 means comma.
// Returns:
//   - *Adapter: adapter that reads the file on the first FetchBatch.
func NewAdapter(path string, delimiter rune) *Adapter {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Adapter{path: path, delimiter: delimiter}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "csv:" + a.path
}

// FetchBatch returns up to limit entries after cursor.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]domain.CatalogEntry, string, error) {
	if !a.loaded {
		f, err := os.Open(a.path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open catalog: %w", err)
		}
		entries, err := Parse(f, a.delimiter)
		f.Close()
		if err != nil {
			return nil, "", err
		}
		a.entries = entries
		a.loaded = true
	}

	start := 0
	if cursor != "" {
		var err error
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(a.entries) {
		return []domain.CatalogEntry{}, "", nil
	}

	end := len(a.entries)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	next := ""
	if end < len(a.entries) {
		next = strconv.Itoa(end)
	}
	return a.entries[start:end], next, nil
}

// Parse reads every catalog row from r. The header is validated before any
// row is decoded; values are trimmed but otherwise kept verbatim.
// Parameters:
//   - r: catalog content including the header line.
//   - delimiter: field delimiter.
// Returns:
//   - []domain.CatalogEntry: decoded rows in file order.
//   - error: *HeaderError on a schema mismatch, or a read/row error.
func Parse(r io.Reader, delimiter rune) ([]domain.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	index, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var entries []domain.CatalogEntry
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog line %d: %w", line, err)
		}

		get := func(col string) string {
			return strings.TrimSpace(record[index[col]])
		}
		entry := domain.CatalogEntry{
			Number:        get("Number"),
			SetName:       get("SetName"),
			Theme:         get("Theme"),
			YearFrom:      get("YearFrom"),
			PackagingType: get("PackagingType"),
			LaunchDate:    get("LaunchDate"),
		}
		if entry.Number == "" {
			return nil, fmt.Errorf("catalog line %d: %w", line, ErrEmptyNumber)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// headerIndex maps each schema column to its position in header.
func headerIndex(header []string) (map[string]int, error) {
	known := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		known[c] = true
	}

	index := make(map[string]int, len(header))
	herr := &HeaderError{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case !known[name]:
			herr.Unexpected = append(herr.Unexpected, name)
		case hasKey(index, name):
			herr.Duplicate = append(herr.Duplicate, name)
		default:
			index[name] = i
		}
	}
	for _, c := range Columns {
		if !hasKey(index, c) {
			herr.Missing = append(herr.Missing, c)
		}
	}

	if len(herr.Missing) > 0 || len(herr.Unexpected) > 0 || len(herr.Duplicate) > 0 {
		return nil, herr
	}
	return index, nil
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}
