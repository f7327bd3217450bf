// Package runlog scopes the process logger to one pipeline run. While a Log
// is open, every message is appended to the run log file and messages at
// Info level or above are echoed to the console.
package runlog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
)

const timeFormat = "01/02/06 15:04:05"

// Log is a log.Outputter bound to a run log file.
type Log struct {
	ctx     context.Context
	mu      sync.Mutex
	f       file.File
	w       io.Writer
	console io.Writer
	prev    log.Outputter
	now     func() time.Time
}

// Open truncates the log file at path and installs the returned Log as the
// process outputter. Close restores the previous outputter.
func Open(ctx context.Context, path string, console io.Writer) (*Log, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create log", path)
	}
	l := &Log{ctx: ctx, f: f, w: f.Writer(ctx), console: console, now: time.Now}
	l.prev = log.SetOutputter(l)
	return l, nil
}

// Level implements log.Outputter. The file receives everything.
func (l *Log) Level() log.Level { return log.Debug }

// Output implements log.Outputter.
func (l *Log) Output(calldepth int, level log.Level, s string) error {
	s = strings.TrimSuffix(s, "\n")
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	ts := l.now().Format(timeFormat)
	if _, err := fmt.Fprintf(l.w, "[%s]: %s\n", ts, s); err != nil {
		return err
	}
	if level > log.Info || l.console == nil {
		return nil
	}
	_, err := fmt.Fprintf(l.console, "[%s]: %s\n", ts, s)
	return err
}

// Close restores the previous outputter and closes the log file.
func (l *Log) Close() error {
	log.SetOutputter(l.prev)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w = nil
	return l.f.Close(l.ctx)
}
