package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog writes to the standard streams before the configured logger exists.
type EarlyLog struct {
	out    io.Writer
	errOut io.Writer
}

func NewEarlyLog() *EarlyLog {
	return &EarlyLog{out: os.Stdout, errOut: os.Stderr}
}

func (l *EarlyLog) Error(msg string, args ...interface{}) {
	l.write(l.errOut, "ERROR", msg, args)
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write(l.errOut, "WARN", msg, args)
}

func (l *EarlyLog) Info(msg string, args ...interface{}) {
	l.write(l.out, "INFO", msg, args)
}

func (l *EarlyLog) write(w io.Writer, level, msg string, args []interface{}) {
	fmt.Fprintf(w, "%s: %s\n", level, fmt.Sprintf(msg, args...))
}
