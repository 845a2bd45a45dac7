// Package ui renders everything the operator sees: callsign panels, QSO
// tables, status lines and prompts. It formats and writes; it never decides
// what happens next and never returns domain errors.
package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"qrzlogger/config"
	"qrzlogger/cty"
	"qrzlogger/journal"
	"qrzlogger/qrz"
	"qrzlogger/qso"
	"qrzlogger/refdata"
)

// Palette assigns a color name to each output role.
type Palette struct {
	Input     string
	Highlight string
	Default   string
	Error     string
	Success   string
	Table     string
}

// PaletteFromConfig maps the colors section onto a Palette.
func PaletteFromConfig(c config.ColorsConfig) Palette {
	return Palette{
		Input:     c.Input,
		Highlight: c.Highlight,
		Default:   c.Default,
		Error:     c.Error,
		Success:   c.Success,
		Table:     c.Table,
	}
}

// Options configures a Presenter.
type Options struct {
	Color   bool
	Palette Palette
	// StationGrid enables distance and bearing in the callsign panel.
	StationGrid string
	Now         func() time.Time
}

// Presenter writes formatted output to one writer.
type Presenter struct {
	out   io.Writer
	color bool
	pal   Palette
	grid  string
	now   func() time.Time
}

// NewPresenter builds a presenter writing to out.
func NewPresenter(out io.Writer, opts Options) *Presenter {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Presenter{
		out:   out,
		color: opts.Color,
		pal:   opts.Palette,
		grid:  strings.ToUpper(strings.TrimSpace(opts.StationGrid)),
		now:   now,
	}
}

// SetOutput redirects later output, e.g. to a writer that redraws the
// prompt after each line.
func (p *Presenter) SetOutput(out io.Writer) {
	if out != nil {
		p.out = out
	}
}

func (p *Presenter) paint(color, text string) string {
	if !p.color || text == "" {
		return text
	}
	code, ok := ansiCodes[strings.ToLower(color)]
	if !ok {
		return text
	}
	return code + text + resetANSI
}

func (p *Presenter) println(line string) {
	fmt.Fprintln(p.out, line)
}

func (p *Presenter) heading(text string) {
	p.println("")
	p.println(p.paint(p.pal.Highlight, text))
}

func (p *Presenter) printTable(t *table) {
	for _, line := range t.lines() {
		p.println(p.paint(p.pal.Table, line))
	}
}

// Banner prints the startup header.
func (p *Presenter) Banner(version, station string, contest bool) {
	title := p.paint("bold", "qrzlogger "+version)
	if station != "" {
		title += "  " + p.paint(p.pal.Highlight, station)
	}
	if contest {
		title += "  " + p.paint(p.pal.Success, "contest mode")
	}
	p.println(title)
	p.println(applyMarkup("type [bold]help[-] for commands, [bold]quit[-] to exit", p.color))
}

// Help lists the commands accepted at the callsign prompt.
func (p *Presenter) Help() {
	p.heading("Commands")
	t := newTable()
	t.addRow("<call>", "look up, show history, then log a QSO")
	t.addRow("query <call>", "look up and show history only")
	t.addRow("log <call>", "log a QSO without the directory lookup")
	t.addRow("recent", "show the QSOs uploaded recently")
	t.addRow("help", "show this list")
	t.addRow("quit, exit, :q", "leave (Ctrl+D works too)")
	p.printTable(t)
	p.println("While entering a QSO: Enter keeps the [default], c cancels, quit exits.")
}

// Purpose: Render the directory record with local annotations.
// Key aspects: Only fields the directory returned are listed; DXCC, LoTW and
// distance rows come from the prefix table, the LoTW files and the station
// grid when those are available.
// Upstream: session LookupCallsign.
// Downstream: table.lines, annotationRows.
func (p *Presenter) CallsignPanel(rec *qrz.Callsign, ann refdata.Annotation) {
	if rec == nil {
		return
	}
	p.heading("QRZ.com results for " + rec.Call)
	t := newTable()
	add := func(key, value string) {
		if strings.TrimSpace(value) != "" {
			t.addRow(key, value)
		}
	}
	add("Name", rec.FullName())
	add("Street", rec.Addr1)
	add("City", rec.Addr2)
	add("State", rec.State)
	add("County", rec.County)
	add("Country", rec.Country)
	add("Locator", rec.Grid)
	add("Email", rec.Email)
	add("QSL via", rec.QSLMgr)
	if rec.UsesLoTW() {
		add("QSL", "LoTW (per profile)")
	}
	for _, row := range p.annotationRows(ann) {
		t.addRow(row[0], row[1])
	}
	if row, ok := p.distanceRow(rec); ok {
		t.addRow(row[0], row[1])
	}
	p.printTable(t)
}

// NoData reports a callsign without a directory record, with whatever the
// local datasets know about it.
func (p *Presenter) NoData(call string, ann refdata.Annotation) {
	p.println("")
	p.println(p.paint(p.pal.Error, call+" has no record on QRZ.com"))
	rows := p.annotationRows(ann)
	if len(rows) == 0 {
		return
	}
	t := newTable()
	for _, row := range rows {
		t.addRow(row[0], row[1])
	}
	p.printTable(t)
}

func (p *Presenter) annotationRows(ann refdata.Annotation) [][2]string {
	var rows [][2]string
	if ann.Found {
		entity := ann.Country
		if ann.DXCC > 0 {
			entity += " (DXCC " + strconv.Itoa(ann.DXCC) + ")"
		}
		rows = append(rows, [2]string{"Entity", entity})
		rows = append(rows, [2]string{"Continent", ann.Continent})
		rows = append(rows, [2]string{"Zones", fmt.Sprintf("CQ %d, ITU %d", ann.CQZone, ann.ITUZone)})
	}
	if ann.LoTWKnown {
		if ann.LoTWUser {
			rows = append(rows, [2]string{"LoTW upload", fmt.Sprintf("%s (%s)",
				humanize.RelTime(ann.LoTWLastUpload, p.now(), "ago", "from now"),
				ann.LoTWLastUpload.Format("2006-01-02"))})
			if ann.LoTWStale(p.now()) {
				rows = append(rows, [2]string{"LoTW warning", "no upload in over a year"})
			}
		} else {
			rows = append(rows, [2]string{"LoTW upload", "not a LoTW user"})
		}
	}
	if ann.ConfirmationsKnown {
		if ann.Confirmed {
			rows = append(rows, [2]string{"Entity confirmed", "yes (LoTW)"})
		} else {
			rows = append(rows, [2]string{"Entity confirmed", "no, new one"})
		}
	}
	return rows
}

func (p *Presenter) distanceRow(rec *qrz.Callsign) ([2]string, bool) {
	if p.grid == "" {
		return [2]string{}, false
	}
	myLat, myLon, ok := cty.LatLonFromGrid(p.grid)
	if !ok {
		return [2]string{}, false
	}
	lat, lon, ok := rec.Coordinates()
	if !ok {
		if lat, lon, ok = cty.LatLonFromGrid(rec.Grid); !ok {
			return [2]string{}, false
		}
	}
	km, deg := cty.DistanceBearing(myLat, myLon, lat, lon)
	return [2]string{"Distance", fmt.Sprintf("%s km, bearing %.0f°", humanize.Comma(int64(km+0.5)), deg)}, true
}

// History lists earlier QSOs with call, newest first.
func (p *Presenter) History(call string, qsos []qso.QSO) {
	if len(qsos) == 0 {
		p.Infof("No previous QSOs with %s", call)
		return
	}
	p.heading(fmt.Sprintf("Previous QSOs with %s (%s)", call, humanize.Comma(int64(len(qsos)))))
	t := newTable("Date", "Time", "Band", "Mode", "RST-S", "RST-R", "Power", "Comment")
	t.align = alignRight
	for _, q := range qsos {
		t.addRow(displayDate(q.Date), displayTime(q.TimeOn), q.Band, q.Mode, q.RSTSent, q.RSTRcvd, q.TxPwr, q.Comment)
	}
	p.printTable(t)
}

// Review shows the QSO as entered, before the upload question.
func (p *Presenter) Review(q qso.QSO) {
	p.heading("QSO to upload")
	t := newTable()
	for _, row := range [][2]string{
		{"Call", q.Call},
		{"QSO Date", displayDate(q.Date)},
		{"QSO Time", displayTime(q.TimeOn)},
		{"Band", q.Band},
		{"Frequency", q.Freq},
		{"Mode", q.Mode},
		{"RST Sent", q.RSTSent},
		{"RST Received", q.RSTRcvd},
		{"Power (W)", q.TxPwr},
		{"Comment", q.Comment},
	} {
		t.addRow(row[0], row[1])
	}
	p.printTable(t)
}

// Confirmed renders the records fetched back after an upload.
func (p *Presenter) Confirmed(qsos []qso.QSO) {
	p.heading("Stored in the QRZ.com logbook")
	t := newTable("LogID", "Date", "Time", "Call", "Band", "Freq", "Mode", "RST-S", "RST-R", "Power")
	t.align = alignRight
	for _, q := range qsos {
		t.addRow(q.LogID, displayDate(q.Date), displayTime(q.TimeOn), q.Call, q.Band, q.Freq, q.Mode, q.RSTSent, q.RSTRcvd, q.TxPwr)
	}
	p.printTable(t)
}

// Recent lists the last uploads from the journal.
func (p *Presenter) Recent(entries []journal.Entry) {
	if len(entries) == 0 {
		return
	}
	p.heading(fmt.Sprintf("Your last %d logged QSOs", len(entries)))
	t := newTable("Uploaded", "QSO (UTC)", "Call", "Band", "Mode", "LogID")
	for _, e := range entries {
		t.addRow(
			humanize.RelTime(e.CreatedAt, p.now(), "ago", "from now"),
			displayDate(e.QSODate)+" "+displayTime(e.TimeOn),
			e.Call, e.Band, e.Mode, e.LogID,
		)
	}
	p.printTable(t)
}

// RefdataStatus prints one line per reference dataset.
func (p *Presenter) RefdataStatus(statuses []refdata.Status) {
	for _, st := range statuses {
		switch {
		case st.Loaded && st.Err == nil:
			p.println(p.paint(p.pal.Default, fmt.Sprintf("%s: %s entries from %s (%s, %s)",
				st.Name, humanize.Comma(int64(st.Entries)), filepath.Base(st.Path),
				st.Download, humanize.RelTime(st.ModTime, p.now(), "old", "ahead"))))
		case st.Loaded:
			p.Warnf("%s: refresh failed, using copy from %s: %v", st.Name,
				humanize.RelTime(st.ModTime, p.now(), "ago", "from now"), st.Err)
		default:
			p.Warnf("%s: unavailable, annotations disabled: %v", st.Name, st.Err)
		}
	}
}

// Errorf prints an error message.
func (p *Presenter) Errorf(format string, args ...any) {
	p.println(p.paint(p.pal.Error, fmt.Sprintf(format, args...)))
}

// Warnf prints a warning.
func (p *Presenter) Warnf(format string, args ...any) {
	p.println(p.paint("yellow", fmt.Sprintf(format, args...)))
}

// Successf prints a success message.
func (p *Presenter) Successf(format string, args ...any) {
	p.println(p.paint(p.pal.Success, fmt.Sprintf(format, args...)))
}

// Infof prints a plain message.
func (p *Presenter) Infof(format string, args ...any) {
	p.println(p.paint(p.pal.Default, fmt.Sprintf(format, args...)))
}

// Prompt builds a prompt label, with the default in brackets when set.
func (p *Presenter) Prompt(label, def string) string {
	if def == "" {
		return p.paint(p.pal.Input, label+": ")
	}
	return p.paint(p.pal.Input, label+" [") + p.paint(p.pal.Default, def) + p.paint(p.pal.Input, "]: ")
}

func displayDate(d string) string {
	t, err := time.Parse(qso.DateLayout, d)
	if err != nil {
		return d
	}
	return t.Format("2006/01/02")
}

func displayTime(v string) string {
	if len(v) >= 4 {
		return v[:2] + ":" + v[2:4]
	}
	return v
}
