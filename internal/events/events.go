// Package events provides the production and test implementations of
// domain.EventSink: the side-effect channel every mutating custody/matching
// operation publishes to, standing in for the host ledger's event bus.
package events

import (
	"context"
	"sync"

	"github.com/dclob/exchange/internal/domain"
	"github.com/dclob/exchange/pkg/telemetry"
)

// LoggingSink logs every published event via domain.Logger and increments
// the matching telemetry counters matching common topics, mirroring how the
// teacher's SimpleEngine logs and instruments price updates together.
type LoggingSink struct {
	logger domain.Logger
}

// NewLoggingSink returns a LoggingSink writing to logger.
func NewLoggingSink(logger domain.Logger) *LoggingSink {
	return &LoggingSink{logger: logger.WithField("component", "events")}
}

// Publish logs payload under topics and nudges the matching telemetry
// counter for a handful of well-known topic names.
func (s *LoggingSink) Publish(topics []string, payload any) {
	s.logger.Info("event", "topics", topics, "payload", payload)
	metrics := telemetry.GetGlobalMetrics()
	ctx := context.Background()
	for _, topic := range topics {
		switch topic {
		case "order_placed":
			if metrics.OrdersPlacedTotal != nil {
				metrics.OrdersPlacedTotal.Add(ctx, 1)
			}
		case "order_cancelled":
			if metrics.OrdersCancelledTotal != nil {
				metrics.OrdersCancelledTotal.Add(ctx, 1)
			}
		case "batch_processed":
			if metrics.BatchesProcessed != nil {
				metrics.BatchesProcessed.Add(ctx, 1)
			}
		}
	}
}

// CapturingSink records every published event in order, for test
// assertions instead of a real logger/telemetry wiring.
type CapturingSink struct {
	mu     sync.Mutex
	Events []Event
}

// Event is one captured Publish call.
type Event struct {
	Topics  []string
	Payload any
}

// NewCapturingSink returns an empty CapturingSink.
func NewCapturingSink() *CapturingSink {
	return &CapturingSink{}
}

// Publish records the event.
func (s *CapturingSink) Publish(topics []string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, Event{Topics: topics, Payload: payload})
}

var _ domain.EventSink = (*LoggingSink)(nil)
var _ domain.EventSink = (*CapturingSink)(nil)
