package slogger

// Discard drops every record.
var Discard Logger = NewDevNullLogger()

// DevNullLogger is a Logger that drops every record, including the fields
// added with With.
type DevNullLogger struct{}

// NewDevNullLogger returns a logger that discards everything.
func NewDevNullLogger() *DevNullLogger {
	return &DevNullLogger{}
}

func (*DevNullLogger) Debug(string, ...any) {}

func (*DevNullLogger) Info(string, ...any) {}

func (*DevNullLogger) Warn(string, ...any) {}

func (*DevNullLogger) Error(string, ...any) {}

func (l *DevNullLogger) With(...any) Logger {
	return l
}
