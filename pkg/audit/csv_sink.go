package audit

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"sync"

	"github.com/Ramsey-B/acre/pkg/models"
)

// CSVSink appends audit records to a CSV file. The original operators worked
// from these files (orphan_events.csv and friends), so the format stays
// tabular and greppable.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var csvHeader = []string{"run_id", "kind", "raw_parcel_id", "county_name", "failing_stage", "reasons", "candidate_count", "details"}

// NewCSVSink creates (truncating) the report file and writes the header.
func NewCSVSink(path string) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		file.Close()
		return nil, err
	}
	return &CSVSink{file: file, writer: writer}, nil
}

// Write appends one record row.
func (s *CSVSink) Write(_ context.Context, record models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := []string{
		record.RunID,
		string(record.Kind),
		record.RawParcelID,
		record.CountyName,
		string(record.FailingStage),
		record.ReasonsRaw,
		strconv.Itoa(record.CandidateCount),
		string(record.Details),
	}
	if err := s.writer.Write(row); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

// Close flushes and closes the report file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
