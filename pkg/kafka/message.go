package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/acre/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Event *models.CreateEventRequest
}

// ParseEvent parses the message value as a transaction event
func (m *IncomingMessage) ParseEvent() error {
	var event models.CreateEventRequest
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return err
	}
	m.Event = &event
	return nil
}

// GetSource returns the feed that produced this message
func (m *IncomingMessage) GetSource() string {
	if m.Event != nil && m.Event.Source != "" {
		return m.Event.Source
	}
	return m.Headers["source"]
}

// GetCountyName returns the county the event belongs to
func (m *IncomingMessage) GetCountyName() string {
	if m.Event != nil {
		return m.Event.CountyName
	}
	return m.Headers["county_name"]
}

// ToTransaction converts the parsed event to a transaction row
func (m *IncomingMessage) ToTransaction() models.Transaction {
	if m.Event == nil {
		return models.Transaction{}
	}
	eventType := m.Event.EventType
	if eventType == "" {
		eventType = "sale"
	}
	return models.Transaction{
		RawParcelID: m.Event.RawParcelID,
		CountyName:  m.Event.CountyName,
		EventType:   eventType,
		EventDate:   m.Event.EventDate,
		Address:     m.Event.Address,
		ZipCode:     m.Event.ZipCode,
		Source:      m.GetSource(),
		Payload:     m.Event.Payload,
	}
}
