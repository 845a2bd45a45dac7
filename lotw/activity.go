// Package lotw reads the two ARRL Logbook of the World datasets: the public
// user-activity list (who uploads, and when they last did) and the
// operator's own confirmation report.
package lotw

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const activityLayout = "2006-01-02 15:04:05"

// Activity maps a callsign to its last LoTW upload.
type Activity struct {
	entries map[string]time.Time
	skipped int
}

// LoadActivity reads lotw-user-activity.csv.
func LoadActivity(path string) (*Activity, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lotw activity file: %w", err)
	}
	defer file.Close()
	return ParseActivity(file)
}

// ParseActivity parses CALL,YYYY-MM-DD,HH:MM:SS lines. Malformed lines are
// skipped; a source without a single valid line is an error.
func ParseActivity(r io.Reader) (*Activity, error) {
	a := &Activity{entries: make(map[string]time.Time)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 3 {
			a.skipped++
			continue
		}
		call := strings.ToUpper(strings.TrimSpace(parts[0]))
		when, err := time.Parse(activityLayout, strings.TrimSpace(parts[1])+" "+strings.TrimSpace(parts[2]))
		if call == "" || err != nil {
			a.skipped++
			continue
		}
		if prev, ok := a.entries[call]; !ok || when.After(prev) {
			a.entries[call] = when
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lotw activity file: %w", err)
	}
	if len(a.entries) == 0 {
		return nil, fmt.Errorf("lotw activity file has no valid records (%d skipped)", a.skipped)
	}
	return a, nil
}

// LastUpload returns when call last uploaded to LoTW.
func (a *Activity) LastUpload(call string) (time.Time, bool) {
	if a == nil {
		return time.Time{}, false
	}
	when, ok := a.entries[strings.ToUpper(strings.TrimSpace(call))]
	return when, ok
}

// Count returns the number of callsigns in the list.
func (a *Activity) Count() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}
