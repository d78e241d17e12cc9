package monitoring

import "log"

// Logf is the package-level diagnostic logger used across the scoring
// pipeline. It defaults to log.Printf; callers can redirect or silence it
// with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, which tests use to keep output quiet.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
