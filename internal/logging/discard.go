package logging

// discard.go provides a no-op logger for tests and silent operation.

import "fmt"

// Discard is a Logger that drops all messages.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Errorf(format string, args ...any) {}
func (discardLogger) Warnf(format string, args ...any)  {}
func (discardLogger) Infof(format string, args ...any)  {}
func (discardLogger) Debugf(format string, args ...any) {}

// Fatalf still panics: dropping the message must not swallow the fault.
func (discardLogger) Fatalf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
