// Package ingest reads the two source feeds. All feed I/O happens here, at
// the pipeline's stage boundary - nothing in the matching path touches a
// file or socket.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Gobusters/ectologger"
	"golang.org/x/text/encoding/charmap"

	"github.com/Ramsey-B/acre/pkg/models"
)

// Parcel feed column names. The registry feed is the state geodata export.
const (
	parcelIDColumn      = "PARCELID"
	parcelCountyColumn  = "CONAME"
	parcelAddressColumn = "SITEADRESS"
	parcelZipColumn     = "ZIPCODE"
)

// ParcelFeed reads parcel rows from CSV files. Columns beyond the
// identifying ones pass through untouched as attributes.
type ParcelFeed struct {
	logger ectologger.Logger
	paths  []string
}

// NewParcelFeed creates a feed over the given CSV files.
func NewParcelFeed(logger ectologger.Logger, paths ...string) *ParcelFeed {
	return &ParcelFeed{logger: logger, paths: paths}
}

// Parcels reads every file in order. An unreadable file is fatal for the
// run; malformed rows within a file are skipped with a warning.
func (f *ParcelFeed) Parcels(ctx context.Context) ([]models.Parcel, error) {
	var parcels []models.Parcel
	for _, path := range f.paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open parcel feed %s: %w", path, err)
		}
		rows, err := f.readParcels(ctx, file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read parcel feed %s: %w", path, err)
		}
		parcels = append(parcels, rows...)
	}
	return parcels, nil
}

func (f *ParcelFeed) readParcels(ctx context.Context, r io.Reader) ([]models.Parcel, error) {
	reader := newFeedReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	columns := indexColumns(header)

	var parcels []models.Parcel
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.logger.WithContext(ctx).WithError(err).Warn("Skipping malformed parcel row")
			continue
		}

		parcel := models.Parcel{
			RawParcelID: columns.get(row, parcelIDColumn),
			CountyName:  columns.get(row, parcelCountyColumn),
			SiteAddress: columns.get(row, parcelAddressColumn),
			ZipCode:     columns.get(row, parcelZipColumn),
		}
		parcel.Attributes = passthrough(columns, row, parcelIDColumn, parcelCountyColumn, parcelAddressColumn, parcelZipColumn)
		parcels = append(parcels, parcel)
	}
	return parcels, nil
}

// newFeedReader wraps a reader with the feed's latin-1 decoding and a CSV
// reader tolerant of ragged rows.
func newFeedReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	reader.FieldsPerRecord = -1
	return reader
}

// columnIndex maps header names to positions, case-insensitively.
type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	index := make(columnIndex, len(header))
	for i, name := range header {
		index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	return index
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[strings.ToUpper(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// passthrough marshals every column not claimed by the engine into a JSON
// attribute blob, preserved verbatim on the record.
func passthrough(columns columnIndex, row []string, claimed ...string) json.RawMessage {
	skip := make(map[string]struct{}, len(claimed))
	for _, name := range claimed {
		skip[strings.ToUpper(name)] = struct{}{}
	}
	attrs := make(map[string]string)
	for name, i := range columns {
		if _, ok := skip[name]; ok {
			continue
		}
		if i < len(row) {
			if value := strings.TrimSpace(row[i]); value != "" {
				attrs[name] = value
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	raw, _ := json.Marshal(attrs)
	return raw
}
