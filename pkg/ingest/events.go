package ingest

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/acre/pkg/models"
)

// Transaction feed column names. The deed/sale export arrives zipped, one
// CSV per archive, with its own identifier format.
const (
	eventParcelIDColumn = "ParcelIdentification"
	eventCountyColumn   = "CountyName"
	eventDeedDateColumn = "DeedDate"
	eventRecordedColumn = "DateRecorded"
	eventAddressColumn  = "PropertyAddress"
	eventZipColumn      = "GranteeZip"
)

// defaultEventSource tags records from the deed transfer export.
const defaultEventSource = "RETR_CSV"

var eventDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	time.RFC3339,
}

// EventFeed reads transaction rows from CSV.zip archives.
type EventFeed struct {
	logger       ectologger.Logger
	paths        []string
	countyFilter string
}

// NewEventFeed creates a feed over the given zip archives. countyFilter,
// when non-empty, keeps only that county's rows (the original runs were
// scoped to a single county at a time).
func NewEventFeed(logger ectologger.Logger, countyFilter string, paths ...string) *EventFeed {
	return &EventFeed{logger: logger, paths: paths, countyFilter: strings.ToUpper(strings.TrimSpace(countyFilter))}
}

// Transactions reads every archive in order. An unreadable archive is fatal
// for the run. Rows with no usable event date are kept with a zero date so
// the pipeline can route them to the audit channel.
func (f *EventFeed) Transactions(ctx context.Context) ([]models.Transaction, error) {
	var txns []models.Transaction
	for _, path := range f.paths {
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open transaction archive %s: %w", path, err)
		}
		rows, err := f.readArchive(ctx, archive)
		archive.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction archive %s: %w", path, err)
		}
		txns = append(txns, rows...)
	}
	return txns, nil
}

func (f *EventFeed) readArchive(ctx context.Context, archive *zip.ReadCloser) ([]models.Transaction, error) {
	var csvFile *zip.File
	for _, file := range archive.File {
		if strings.HasSuffix(strings.ToLower(file.Name), ".csv") {
			csvFile = file
			break
		}
	}
	if csvFile == nil {
		return nil, fmt.Errorf("no CSV file inside archive")
	}

	r, err := csvFile.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return f.readEvents(ctx, r)
}

func (f *EventFeed) readEvents(ctx context.Context, r io.Reader) ([]models.Transaction, error) {
	reader := newFeedReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	columns := indexColumns(header)

	var txns []models.Transaction
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		county := columns.get(row, eventCountyColumn)
		if f.countyFilter != "" && strings.ToUpper(county) != f.countyFilter {
			continue
		}

		txn := models.Transaction{
			RawParcelID: columns.get(row, eventParcelIDColumn),
			CountyName:  county,
			EventType:   "sale",
			EventDate:   parseEventDate(columns.get(row, eventDeedDateColumn), columns.get(row, eventRecordedColumn)),
			Address:     columns.get(row, eventAddressColumn),
			ZipCode:     columns.get(row, eventZipColumn),
			Source:      defaultEventSource,
		}
		txn.Payload = passthrough(columns, row, eventParcelIDColumn, eventCountyColumn, eventAddressColumn, eventZipColumn)
		txns = append(txns, txn)
	}

	if skipped > 0 {
		f.logger.WithContext(ctx).WithFields(map[string]any{"rows": skipped}).Warn("Skipped malformed transaction rows")
	}
	return txns, nil
}

// parseEventDate applies the feed's fallback chain: the deed date is
// primary, the recorded date covers rows where it is blank or unparseable.
// A zero time means neither was usable.
func parseEventDate(deedDate, dateRecorded string) time.Time {
	if t, ok := parseDate(deedDate); ok {
		return t
	}
	if t, ok := parseDate(dateRecorded); ok {
		return t
	}
	return time.Time{}
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
