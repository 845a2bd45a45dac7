package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// preflightResult reports the integrity check run before the journal opens.
type preflightResult struct {
	Healthy        bool
	Quarantined    bool
	QuarantinePath string
	CheckError     error
}

// Purpose: Run a bounded quick_check on an existing journal file.
// Key aspects: A corrupt file (and its sidecars) is renamed to
// <path>.bad-<timestamp> so the session can start with an empty journal.
// Upstream: Open.
// Downstream: quickCheck, quarantine.
func preflight(path string, timeout time.Duration) (preflightResult, error) {
	var res preflightResult
	existing := sidecars(path)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return res, fmt.Errorf("journal: preflight open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		res.CheckError = err
	} else {
		res.CheckError = quickCheck(ctx, db)
	}
	db.Close()

	if res.CheckError == nil {
		res.Healthy = true
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("journal: integrity check timed out after %s", timeout)
	}
	dest, err := quarantine(existing, time.Now().UTC())
	if err != nil {
		return res, fmt.Errorf("journal: quarantine failed: %w (quick_check=%v)", err, res.CheckError)
	}
	res.Quarantined = true
	res.QuarantinePath = dest
	return res, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

// sidecars lists path and whichever of its -wal/-shm/-journal files exist.
func sidecars(path string) []string {
	out := []string{path}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if _, err := os.Stat(path + suffix); err == nil {
			out = append(out, path+suffix)
		}
	}
	return out
}

// quarantine renames files with a shared .bad-<ts> suffix and returns the
// new name of the main file.
func quarantine(files []string, now time.Time) (string, error) {
	suffix := ".bad-" + now.Format("20060102T150405Z")
	for _, f := range files {
		if err := os.Rename(f, f+suffix); err != nil && !os.IsNotExist(err) {
			return "", err
		}
	}
	return files[0] + suffix, nil
}
