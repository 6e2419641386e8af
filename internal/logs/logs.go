// Package logs exposes info, warning and error loggers.
//
// The terminal belongs to the UI while the program runs, so loggers write
// to whatever Init is given (normally a log file). Before Init they discard.
package logs

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

var (
	Info    = log.New(io.Discard, "I ", log.LstdFlags)
	Warning = log.New(io.Discard, "W ", log.LstdFlags)
	Error   = log.New(io.Discard, "E ", log.LstdFlags)
)

func Init(out io.Writer) {
	flags := log.LstdFlags | log.Lshortfile
	Info = log.New(out, "I ", flags)
	Warning = log.New(out, "W ", flags)
	Error = log.New(out, "E ", flags)
}

// OpenFile creates (or appends to) the log file at path.
func OpenFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
