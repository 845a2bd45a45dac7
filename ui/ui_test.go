package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"qrzlogger/journal"
	"qrzlogger/qrz"
	"qrzlogger/qso"
	"qrzlogger/refdata"
)

var testNow = time.Date(2026, 8, 15, 18, 45, 0, 0, time.UTC)

func newTestPresenter(color bool) (*Presenter, *bytes.Buffer) {
	var buf bytes.Buffer
	p := NewPresenter(&buf, Options{
		Color:       color,
		Palette:     Palette{Input: "yellow", Highlight: "cyan", Default: "white", Error: "red", Success: "green", Table: "blue"},
		StationGrid: "JO62",
		Now:         func() time.Time { return testNow },
	})
	return p, &buf
}

func TestApplyMarkup(t *testing.T) {
	if got := applyMarkup("[red]X[-]", true); got != "\x1b[31mX\x1b[0m\x1b[0m" {
		t.Fatalf("markup mismatch: %q", got)
	}
	if got := applyMarkup("[red]X[-]", false); got != "X" {
		t.Fatalf("strip mismatch: %q", got)
	}
	if got := applyMarkup("comment [59] ok", true); got != "comment [59] ok" {
		t.Fatalf("unknown brackets must survive: %q", got)
	}
	if !KnownColor("Bright_Red") || KnownColor("mauve") {
		t.Fatalf("KnownColor mismatch")
	}
}

func TestColorEnabledNeedsTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()
	if ColorEnabled(true, w) {
		t.Fatalf("a pipe is not a terminal")
	}
	if ColorEnabled(false, os.Stdout) {
		t.Fatalf("colors disabled in config must stay off")
	}
}

func TestTableWidthWithWideRunes(t *testing.T) {
	tbl := newTable("Name", "City")
	tbl.addRow("Jürgen Müller", "München")
	tbl.addRow("山田太郎", "東京")
	lines := tbl.lines()
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}
	want := runewidth.StringWidth(lines[0])
	for i, line := range lines {
		if w := runewidth.StringWidth(line); w != want {
			t.Fatalf("line %d width %d, want %d: %q", i, w, want, line)
		}
	}
}

func TestTableTruncatesAndFlattens(t *testing.T) {
	long := strings.Repeat("x", 100)
	if got := cell(long); runewidth.StringWidth(got) != maxCellWidth || !strings.HasSuffix(got, "…") {
		t.Fatalf("long cell not truncated: %q", got)
	}
	if got := cell("a\nb\tc\x07"); got != "a b c" {
		t.Fatalf("control characters not flattened: %q", got)
	}
}

func TestCallsignPanel(t *testing.T) {
	p, buf := newTestPresenter(false)
	rec := &qrz.Callsign{
		Call: "DL6MHC", Fname: "Michael", Name: "Clemens", Addr2: "Muenchen",
		Country: "Germany", Grid: "JN58td", Lat: "48.137", Lon: "11.575", LoTW: "1",
	}
	ann := refdata.Annotation{
		Found: true, Country: "Fed. Rep. of Germany", Continent: "EU", DXCC: 230, CQZone: 14, ITUZone: 28,
		LoTWKnown: true, LoTWUser: true, LoTWLastUpload: testNow.Add(-72 * time.Hour),
		ConfirmationsKnown: true, Confirmed: true,
	}
	p.CallsignPanel(rec, ann)
	out := buf.String()
	for _, want := range []string{
		"QRZ.com results for DL6MHC",
		"Michael Clemens",
		"Germany",
		"JN58td",
		"Fed. Rep. of Germany (DXCC 230)",
		"CQ 14, ITU 28",
		"3 days ago (2026-08-12)",
		"yes (LoTW)",
		"km, bearing",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("panel missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("escape codes written with colors disabled")
	}
	if strings.Contains(out, "Street") {
		t.Fatalf("absent fields must be omitted:\n%s", out)
	}
	if strings.Contains(out, "LoTW warning") {
		t.Fatalf("recent uploader flagged as stale:\n%s", out)
	}
}

func TestCallsignPanelFlagsStaleLoTWUser(t *testing.T) {
	p, buf := newTestPresenter(false)
	ann := refdata.Annotation{
		LoTWKnown: true, LoTWUser: true, LoTWLastUpload: testNow.AddDate(-2, 0, 0),
	}
	p.CallsignPanel(&qrz.Callsign{Call: "W1ABC"}, ann)
	if !strings.Contains(buf.String(), "no upload in over a year") {
		t.Fatalf("stale LoTW user not flagged:\n%s", buf.String())
	}
}

func TestNoData(t *testing.T) {
	p, buf := newTestPresenter(false)
	p.NoData("XX9ZZZ", refdata.Annotation{})
	if got := buf.String(); !strings.Contains(got, "XX9ZZZ has no record on QRZ.com") || strings.Contains(got, "┌") {
		t.Fatalf("unexpected no-data output:\n%s", got)
	}
	buf.Reset()
	p.NoData("VP8XYZ", refdata.Annotation{Found: true, Country: "Falkland Islands", Continent: "SA", DXCC: 141})
	if got := buf.String(); !strings.Contains(got, "Falkland Islands (DXCC 141)") {
		t.Fatalf("prefix table data missing:\n%s", got)
	}
}

func TestHistoryAndConfirmed(t *testing.T) {
	p, buf := newTestPresenter(false)
	p.History("DL6MHC", nil)
	if !strings.Contains(buf.String(), "No previous QSOs with DL6MHC") {
		t.Fatalf("empty history message missing: %q", buf.String())
	}
	buf.Reset()
	qsos := []qso.QSO{{LogID: "12345", Call: "DL6MHC", Date: "20260815", TimeOn: "1830", Band: "40m", Mode: "SSB", RSTSent: "59", RSTRcvd: "59"}}
	p.History("DL6MHC", qsos)
	if out := buf.String(); !strings.Contains(out, "2026/08/15") || !strings.Contains(out, "18:30") || !strings.Contains(out, "(1)") {
		t.Fatalf("history table incomplete:\n%s", out)
	}
	buf.Reset()
	p.Confirmed(qsos)
	if out := buf.String(); !strings.Contains(out, "12345") || !strings.Contains(out, "40m") {
		t.Fatalf("confirmation table incomplete:\n%s", out)
	}
}

func TestRecentAndStatus(t *testing.T) {
	p, buf := newTestPresenter(false)
	p.Recent(nil)
	if buf.Len() != 0 {
		t.Fatalf("empty journal should print nothing, got %q", buf.String())
	}
	p.Recent([]journal.Entry{{CreatedAt: testNow.Add(-10 * time.Minute), Call: "K1ABC", QSODate: "20260815", TimeOn: "1835", Band: "20m", Mode: "CW", LogID: "77"}})
	if out := buf.String(); !strings.Contains(out, "10 minutes ago") || !strings.Contains(out, "K1ABC") {
		t.Fatalf("recent table incomplete:\n%s", out)
	}
	buf.Reset()
	p.RefdataStatus([]refdata.Status{
		{Name: refdata.NamePrefixTable, Path: "/tmp/cty.plist", Loaded: true, Entries: 23456, ModTime: testNow.Add(-48 * time.Hour), Download: "fresh"},
		{Name: refdata.NameActivity, Err: os.ErrNotExist},
	})
	out := buf.String()
	if !strings.Contains(out, "23,456 entries from cty.plist") || !strings.Contains(out, "lotw activity: unavailable") {
		t.Fatalf("status lines incomplete:\n%s", out)
	}
}

func TestPromptAndColors(t *testing.T) {
	p, _ := newTestPresenter(false)
	if got := p.Prompt("Band", "20m"); got != "Band [20m]: " {
		t.Fatalf("unexpected prompt %q", got)
	}
	if got := p.Prompt("Comment", ""); got != "Comment: " {
		t.Fatalf("unexpected prompt %q", got)
	}
	colored, buf := newTestPresenter(true)
	colored.Errorf("boom %d", 1)
	if got := buf.String(); got != "\x1b[31mboom 1\x1b[0m\n" {
		t.Fatalf("unexpected colored error %q", got)
	}
}
