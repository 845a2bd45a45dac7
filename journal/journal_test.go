package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"qrzlogger/qso"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "data", "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleQSO(call, band string) qso.QSO {
	return qso.QSO{
		StationCall: "N0CALL",
		Call:        call,
		Date:        "20260815",
		TimeOn:      "1830",
		Band:        band,
		Mode:        "SSB",
		RSTSent:     "59",
		RSTRcvd:     "59",
	}
}

func TestRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)

	calls := []string{"DL6MHC", "K1ABC", "JA1XYZ"}
	for i, call := range calls {
		e := NewEntry(sampleQSO(call, "40m"), "100"+string(rune('0'+i)), nil)
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := j.Record(ctx, e); err != nil {
			t.Fatalf("record %s: %v", call, err)
		}
	}
	failed := NewEntry(sampleQSO("F4ABC", "20m"), "", errors.New("qrz: qso rejected: duplicate"))
	failed.CreatedAt = base.Add(time.Hour)
	if _, err := j.Record(ctx, failed); err != nil {
		t.Fatalf("record failed attempt: %v", err)
	}

	recent, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Call != "JA1XYZ" || recent[1].Call != "K1ABC" {
		t.Fatalf("expected newest successful first, got %s, %s", recent[0].Call, recent[1].Call)
	}
	got := recent[0]
	if got.Status != StatusSuccess || got.LogID != "1002" || got.Band != "40m" || got.Mode != "SSB" {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("unexpected created_at %s", got.CreatedAt)
	}
	if !strings.Contains(got.ADIF, "<call:6>JA1XYZ") || !strings.HasSuffix(got.ADIF, "<eor>") {
		t.Fatalf("adif not stored: %q", got.ADIF)
	}
}

func TestFindUploaded(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()
	q := sampleQSO("DL6MHC", "40m")

	if e, err := j.FindUploaded(ctx, Fingerprint(q)); err != nil || e != nil {
		t.Fatalf("expected no match in empty journal, got %+v %v", e, err)
	}
	if _, err := j.Record(ctx, NewEntry(q, "", errors.New("timeout"))); err != nil {
		t.Fatalf("record: %v", err)
	}
	if e, _ := j.FindUploaded(ctx, Fingerprint(q)); e != nil {
		t.Fatalf("failed attempts must not count as uploaded: %+v", e)
	}
	if _, err := j.Record(ctx, NewEntry(q, "12345", nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	e, err := j.FindUploaded(ctx, Fingerprint(q))
	if err != nil || e == nil {
		t.Fatalf("expected match, got %+v %v", e, err)
	}
	if e.LogID != "12345" {
		t.Fatalf("unexpected logid %q", e.LogID)
	}
}

func TestFingerprint(t *testing.T) {
	a := sampleQSO("DL6MHC", "40m")
	b := a
	b.Call = "dl6mhc"
	b.Band = "40M"
	b.Mode = "ssb"
	b.TimeOn = "18:30:59"
	b.Comment = "different comment"
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatalf("expected equal fingerprints for the same contact")
	}
	c := a
	c.Band = "20m"
	if Fingerprint(a) == Fingerprint(c) {
		t.Fatalf("different band must change the fingerprint")
	}
	if len(Fingerprint(a)) != 16 {
		t.Fatalf("unexpected fingerprint %q", Fingerprint(a))
	}
}

func TestOpenQuarantinesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")
	if err := os.WriteFile(path, []byte("this is not a sqlite database, just text padding it out"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer j.Close()
	if _, err := j.Record(context.Background(), NewEntry(sampleQSO("DL6MHC", "40m"), "1", nil)); err != nil {
		t.Fatalf("record after quarantine: %v", err)
	}
	matches, _ := filepath.Glob(path + ".bad-*")
	if len(matches) != 1 {
		t.Fatalf("expected corrupt file moved aside, got %v", matches)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := j.Record(context.Background(), NewEntry(sampleQSO("K1ABC", "20m"), "77", nil)); err != nil {
		t.Fatalf("record: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	recent, err := j.Recent(context.Background(), 10)
	if err != nil || len(recent) != 1 || recent[0].LogID != "77" {
		t.Fatalf("expected persisted entry, got %+v %v", recent, err)
	}
}
