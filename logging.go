package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qrzlogger/config"
)

// Log lines go to one file per UTC day under logging.dir and, only when
// logging.console is set, to stderr as well. Credential values are masked
// before any sink sees a line.

const (
	logStampLayout = "2006/01/02 15:04:05"
	logDayLayout   = "02-Jan-2006"
	maxPartialLine = 16 * 1024
)

type logSink interface {
	emit(stamp time.Time, line string)
	Close() error
}

type consoleSink struct {
	w io.Writer
}

func (c consoleSink) emit(stamp time.Time, line string) {
	fmt.Fprintf(c.w, "%s %s\n", stamp.UTC().Format(logStampLayout), line)
}

func (consoleSink) Close() error {
	return nil
}

// dayFile appends to <dir>/<DD-Mon-YYYY>.log and switches files when the
// UTC date of a line changes. At most keep days of files are left behind.
type dayFile struct {
	dir  string
	keep int

	mu       sync.Mutex
	day      string
	f        *os.File
	warnedOn string
}

func openDayFile(dir string, keep int) (*dayFile, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("log directory is empty")
	}
	if keep <= 0 {
		keep = 7
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %q: %w", dir, err)
	}
	if err := pruneLogs(dir, time.Now(), keep); err != nil {
		fmt.Fprintf(os.Stderr, "Logging: pruning %s: %v\n", dir, err)
	}
	return &dayFile{dir: dir, keep: keep}, nil
}

func (d *dayFile) emit(stamp time.Time, line string) {
	stamp = stamp.UTC()
	day := stamp.Format(logDayLayout)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil || d.day != day {
		if err := d.switchTo(day, stamp); err != nil {
			d.warn(day, err)
			return
		}
	}
	if _, err := fmt.Fprintf(d.f, "%s %s\n", stamp.Format(logStampLayout), line); err != nil {
		d.warn(day, err)
	}
}

func (d *dayFile) switchTo(day string, stamp time.Time) error {
	if d.f != nil {
		_ = d.f.Close()
		d.f = nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(d.dir, logFileName(stamp)), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	d.f, d.day = f, day
	return pruneLogs(d.dir, stamp, d.keep)
}

// warn prints only the first file failure of each day to stderr.
func (d *dayFile) warn(day string, err error) {
	if d.warnedOn == day {
		return
	}
	d.warnedOn = day
	fmt.Fprintf(os.Stderr, "Logging: %s: %v\n", d.dir, err)
}

// Path is the file currently open, or "" before the first line.
func (d *dayFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return ""
	}
	return d.f.Name()
}

func (d *dayFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f, d.day = nil, ""
	return err
}

// logWriter is the log package's output: it splits writes into lines, masks
// secrets and hands each line to every attached sink.
type logWriter struct {
	mu      sync.Mutex
	pending []byte
	sinks   []logSink
	now     func() time.Time
}

func newLogWriter(sinks ...logSink) *logWriter {
	return &logWriter{sinks: sinks, now: time.Now}
}

func (w *logWriter) attach(s logSink) {
	w.mu.Lock()
	w.sinks = append(w.sinks, s)
	w.mu.Unlock()
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.pending = append(w.pending, p...)
	var lines []string
	for {
		line, rest, ok := bytes.Cut(w.pending, []byte{'\n'})
		if !ok {
			break
		}
		lines = append(lines, redactSecrets(string(bytes.TrimRight(line, "\r"))))
		w.pending = rest
	}
	if len(w.pending) > maxPartialLine {
		lines = append(lines, redactSecrets(string(w.pending)))
		w.pending = nil
	}
	sinks := w.sinks
	w.mu.Unlock()

	stamp := w.now()
	for _, line := range lines {
		for _, s := range sinks {
			s.emit(stamp, line)
		}
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	w.mu.Lock()
	sinks := w.sinks
	w.sinks = nil
	w.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// Purpose: Build the log output from the logging section.
// Key aspects: The terminal belongs to the prompts, so the console sink is
// opt-in; a file sink that cannot be created is reported and skipped.
// Upstream: run.
// Downstream: openDayFile, log.SetOutput.
func setupLogging(cfg config.LoggingConfig, console io.Writer) (*logWriter, error) {
	w := newLogWriter()
	if cfg.Console && console != nil {
		w.attach(consoleSink{w: console})
	}
	if !cfg.Enabled {
		return w, nil
	}
	file, err := openDayFile(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return w, err
	}
	w.attach(file)
	return w, nil
}

// secretParams are form and query keys whose values never reach a log file.
var secretParams = []string{"password=", "KEY=", "s=", "api_key="}

// redactSecrets masks credential values that a request log line may carry.
func redactSecrets(line string) string {
	for _, param := range secretParams {
		start := 0
		for {
			idx := strings.Index(line[start:], param)
			if idx < 0 {
				break
			}
			idx += start
			valStart := idx + len(param)
			if idx > 0 && isParamByte(line[idx-1]) {
				start = valStart
				continue
			}
			valEnd := valStart
			for valEnd < len(line) && line[valEnd] != '&' && line[valEnd] != ' ' {
				valEnd++
			}
			if valEnd > valStart {
				line = line[:valStart] + "***" + line[valEnd:]
			}
			start = valStart
		}
	}
	return line
}

func isParamByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func logFileName(t time.Time) string {
	return t.UTC().Format(logDayLayout) + ".log"
}

// logFileDay returns the UTC day a log file name stands for.
func logFileDay(name string) (time.Time, bool) {
	base, ok := strings.CutSuffix(name, ".log")
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(logDayLayout, base, time.UTC)
	return day, err == nil
}

// pruneLogs removes dated log files older than the keep most recent days,
// counting the day of now. Other files are left alone.
func pruneLogs(dir string, now time.Time, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	y, m, d := now.UTC().Date()
	oldest := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1-keep)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if day, ok := logFileDay(entry.Name()); ok && day.Before(oldest) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}
