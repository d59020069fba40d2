package persist

import (
	"log"
	"os"
)

// Logger is a thin wrapper around the standard logger that frames a log
// file with STARTUP/SHUTDOWN markers.
type Logger struct {
	*log.Logger
	f *os.File
}

// NewFileLogger returns a logger that logs to logFilename. The file is
// opened in append mode so repeated runs accumulate history.
func NewFileLogger(appName, logFilename string) (*Logger, error) {
	f, err := os.OpenFile(logFilename, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	logger := log.New(f, appName+": ", log.Ldate|log.Ltime|log.Lmicroseconds)
	fl := &Logger{Logger: logger, f: f}
	fl.Println("STARTUP: " + appName + " logger started")
	return fl, nil
}

// Severe logs an unrecoverable error and panics. Reserved for invariants
// that must never be violated.
func (fl *Logger) Severe(v ...interface{}) {
	fl.Println(append([]interface{}{"SEVERE:"}, v...)...)
	panic(v)
}

// Close writes a SHUTDOWN marker and closes the underlying file.
func (fl *Logger) Close() error {
	fl.Println("SHUTDOWN: logger closing")
	return fl.f.Close()
}
