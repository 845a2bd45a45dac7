// Package qso defines the contact record exchanged with the logbook service,
// its ADIF field mapping and the local validation applied before upload.
package qso

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"qrzlogger/adif"
	"qrzlogger/callsign"
)

// ErrInvalid marks a QSO rejected by local validation.
var ErrInvalid = errors.New("invalid qso")

const (
	DateLayout     = "20060102"
	TimeLayout     = "1504"
	TimeLayoutLong = "150405"
	fieldLogID     = "app_qrzlog_logid"
	fieldStation   = "station_callsign"
	fieldOperator  = "operator"
)

// QSO is one contact. Date and TimeOn are kept in ADIF form (YYYYMMDD, HHMM).
type QSO struct {
	LogID       string
	StationCall string
	Call        string
	Date        string
	TimeOn      string
	Band        string
	Freq        string
	Mode        string
	RSTSent     string
	RSTRcvd     string
	TxPwr       string
	Comment     string
	Name        string
	Grid        string

	// Derived from the prefix table; not all are sent on insert.
	Country   string
	Continent string
	DXCC      int
}

// Fields returns the ADIF fields for an insert, station call first.
func (q QSO) Fields() []adif.Field {
	fields := []adif.Field{
		{Name: fieldStation, Value: q.StationCall},
		{Name: "call", Value: q.Call},
		{Name: "qso_date", Value: q.Date},
		{Name: "time_on", Value: q.TimeOn},
		{Name: "band", Value: q.Band},
		{Name: "freq", Value: q.Freq},
		{Name: "mode", Value: q.Mode},
		{Name: "rst_sent", Value: q.RSTSent},
		{Name: "rst_rcvd", Value: q.RSTRcvd},
		{Name: "tx_pwr", Value: q.TxPwr},
		{Name: "name", Value: q.Name},
		{Name: "gridsquare", Value: q.Grid},
		{Name: "comment", Value: q.Comment},
	}
	if q.DXCC > 0 {
		fields = append(fields, adif.Field{Name: "dxcc", Value: strconv.Itoa(q.DXCC)})
	}
	return fields
}

// ADIF renders the QSO as a single ADIF record.
func (q QSO) ADIF() string {
	return adif.Encode(q.Fields())
}

// RecordFields are the ADIF fields FromRecord reads.
var RecordFields = []string{
	fieldLogID, fieldStation, fieldOperator, "call", "qso_date", "time_on",
	"band", "freq", "mode", "rst_sent", "rst_rcvd", "tx_pwr", "comment",
	"name", "gridsquare", "country", "cont", "dxcc",
}

// FromRecord maps a decoded ADIF record (as returned by the logbook fetch)
// onto a QSO.
func FromRecord(r adif.Record) QSO {
	q := QSO{
		LogID:       r.Get(fieldLogID),
		StationCall: r.Get(fieldStation),
		Call:        strings.ToUpper(r.Get("call")),
		Date:        r.Get("qso_date"),
		TimeOn:      r.Get("time_on"),
		Band:        NormalizeBand(r.Get("band")),
		Freq:        r.Get("freq"),
		Mode:        strings.ToUpper(r.Get("mode")),
		RSTSent:     r.Get("rst_sent"),
		RSTRcvd:     r.Get("rst_rcvd"),
		TxPwr:       r.Get("tx_pwr"),
		Comment:     r.Get("comment"),
		Name:        r.Get("name"),
		Grid:        r.Get("gridsquare"),
		Country:     r.Get("country"),
		Continent:   r.Get("cont"),
	}
	if q.StationCall == "" {
		q.StationCall = r.Get(fieldOperator)
	}
	if n, err := strconv.Atoi(r.Get("dxcc")); err == nil {
		q.DXCC = n
	}
	return q
}

// Validate checks the fields the logbook requires. Failures wrap ErrInvalid.
func (q QSO) Validate() error {
	var problems []string
	if !callsign.Valid(q.Call) {
		problems = append(problems, "call is missing or malformed")
	}
	if q.Date == "" {
		problems = append(problems, "qso_date is missing")
	} else if _, err := time.Parse(DateLayout, q.Date); err != nil || len(q.Date) != 8 {
		problems = append(problems, fmt.Sprintf("qso_date %q is not a YYYYMMDD date", q.Date))
	}
	if q.TimeOn == "" {
		problems = append(problems, "time_on is missing")
	} else if !validTime(q.TimeOn) {
		problems = append(problems, fmt.Sprintf("time_on %q is not HHMM or HHMMSS", q.TimeOn))
	}
	if q.Band == "" {
		problems = append(problems, "band is missing")
	} else if !KnownBand(q.Band) {
		problems = append(problems, fmt.Sprintf("band %q is unknown", q.Band))
	}
	if strings.TrimSpace(q.Mode) == "" {
		problems = append(problems, "mode is missing")
	}
	if q.Freq != "" {
		if f, err := strconv.ParseFloat(q.Freq, 64); err != nil || f <= 0 {
			problems = append(problems, fmt.Sprintf("freq %q is not a frequency in MHz", q.Freq))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

func validTime(v string) bool {
	switch len(v) {
	case 4:
		_, err := time.Parse(TimeLayout, v)
		return err == nil
	case 6:
		_, err := time.Parse(TimeLayoutLong, v)
		return err == nil
	default:
		return false
	}
}

// NormalizeDate accepts YYYYMMDD or YYYY-MM-DD and returns YYYYMMDD.
func NormalizeDate(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), "-", "")
}

// NormalizeTime accepts HHMM, HH:MM or HH:MM:SS and drops the colons.
func NormalizeTime(v string) string {
	return strings.ReplaceAll(strings.TrimSpace(v), ":", "")
}

// Timestamp combines Date and TimeOn; unparseable values yield the zero time.
func (q QSO) Timestamp() time.Time {
	t := q.TimeOn
	if len(t) == 4 {
		t += "00"
	}
	ts, err := time.Parse(DateLayout+TimeLayoutLong, q.Date+t)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// SortNewestFirst orders qsos by date and time, most recent first.
func SortNewestFirst(qsos []QSO) {
	sort.SliceStable(qsos, func(i, j int) bool {
		return qsos[i].Timestamp().After(qsos[j].Timestamp())
	})
}
