// Package journal keeps a local SQLite record of every upload attempt. It
// backs the recent-QSO list shown at the callsign prompt and the probable
// duplicate check before an insert.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"qrzlogger/qso"

	_ "modernc.org/sqlite"
)

// Status of an upload attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Entry is one journaled upload attempt.
type Entry struct {
	ID          int64
	CreatedAt   time.Time
	Status      Status
	Call        string
	Band        string
	Mode        string
	QSODate     string
	TimeOn      string
	LogID       string
	Fingerprint string
	ADIF        string
	Reason      string
}

// Journal is the upload journal. Writes are serialized through a single
// connection.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (or creates) the journal at path. A file that fails the
// integrity check is moved aside and a fresh journal is started.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		res, err := preflight(path, 2*time.Second)
		if err != nil {
			return nil, err
		}
		if res.Quarantined {
			log.Printf("[JOURNAL] %s failed integrity check (%v); moved to %s", path, res.CheckError, res.QuarantinePath)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db, path: path, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS uploads (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at INTEGER NOT NULL,
    status TEXT NOT NULL,
    call TEXT NOT NULL,
    band TEXT,
    mode TEXT,
    qso_date TEXT,
    time_on TEXT,
    logid TEXT,
    fingerprint TEXT,
    adif TEXT,
    reason TEXT
);
CREATE INDEX IF NOT EXISTS uploads_fingerprint ON uploads(fingerprint, status);`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// NewEntry builds the entry for an upload attempt of q. A nil err records a
// success under logid; otherwise the error text is kept as the reason.
func NewEntry(q qso.QSO, logid string, err error) Entry {
	e := Entry{
		Status:      StatusSuccess,
		Call:        q.Call,
		Band:        q.Band,
		Mode:        q.Mode,
		QSODate:     q.Date,
		TimeOn:      q.TimeOn,
		LogID:       logid,
		Fingerprint: Fingerprint(q),
		ADIF:        q.ADIF(),
	}
	if err != nil {
		e.Status = StatusFailed
		e.Reason = err.Error()
	}
	return e
}

// Record appends e and returns its row id. CreatedAt defaults to now.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if j == nil || j.db == nil {
		return 0, errors.New("journal: not open")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now()
	}
	res, err := j.db.ExecContext(ctx, `
INSERT INTO uploads (
    created_at, status, call, band, mode, qso_date, time_on, logid, fingerprint, adif, reason
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CreatedAt.UTC().Unix(),
		string(e.Status),
		strings.ToUpper(e.Call),
		e.Band,
		e.Mode,
		e.QSODate,
		e.TimeOn,
		e.LogID,
		e.Fingerprint,
		e.ADIF,
		e.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("journal: insert: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to n successful uploads, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if j == nil || j.db == nil || n <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, selectColumns+`
WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ?`, string(StatusSuccess), n)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("journal: recent: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindUploaded returns the most recent successful upload with fingerprint.
func (j *Journal) FindUploaded(ctx context.Context, fingerprint string) (*Entry, error) {
	if j == nil || j.db == nil || fingerprint == "" {
		return nil, nil
	}
	row := j.db.QueryRowContext(ctx, selectColumns+`
WHERE status = ? AND fingerprint = ? ORDER BY id DESC LIMIT 1`, string(StatusSuccess), fingerprint)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: find: %w", err)
	}
	return &e, nil
}

const selectColumns = `
SELECT id, created_at, status, call, band, mode, qso_date, time_on, logid, fingerprint, adif, reason
FROM uploads`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var e Entry
	var created int64
	var status string
	var band, mode, date, timeOn, logid, fp, adif, reason sql.NullString
	if err := s.Scan(&e.ID, &created, &status, &e.Call, &band, &mode, &date, &timeOn, &logid, &fp, &adif, &reason); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.Unix(created, 0).UTC()
	e.Status = Status(status)
	e.Band = band.String
	e.Mode = mode.String
	e.QSODate = date.String
	e.TimeOn = timeOn.String
	e.LogID = logid.String
	e.Fingerprint = fp.String
	e.ADIF = adif.String
	e.Reason = reason.String
	return e, nil
}

// Fingerprint identifies a contact by call, date, time, band and mode so a
// second upload of the same QSO can be spotted. Seconds are ignored.
func Fingerprint(q qso.QSO) string {
	timeOn := qso.NormalizeTime(q.TimeOn)
	if len(timeOn) > 4 {
		timeOn = timeOn[:4]
	}
	key := strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(q.Call)),
		qso.NormalizeDate(q.Date),
		timeOn,
		qso.NormalizeBand(q.Band),
		strings.ToUpper(strings.TrimSpace(q.Mode)),
	}, "|")
	return fmt.Sprintf("%016x", xxh3.HashString(key))
}
