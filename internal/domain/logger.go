package domain

// Logger is the structured-logging interface every domain package depends
// on, so tests can substitute a capturing logger instead of wiring zap.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// EventSink is the side-effect sink every mutating operation publishes to,
// standing in for the host ledger's event bus. Production sinks log and
// increment telemetry counters; test sinks capture events for assertions.
type EventSink interface {
	Publish(topics []string, payload any)
}

// NopEventSink discards every event.
type NopEventSink struct{}

func (NopEventSink) Publish(topics []string, payload any) {}
