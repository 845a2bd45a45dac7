package qso

import (
	"errors"
	"strings"
	"testing"

	"qrzlogger/adif"
)

func validQSO() QSO {
	return QSO{
		StationCall: "N0CALL",
		Call:        "DL6MHC",
		Date:        "20240315",
		TimeOn:      "1830",
		Band:        "40m",
		Freq:        "7.100",
		Mode:        "SSB",
		RSTSent:     "59",
		RSTRcvd:     "59",
		TxPwr:       "100",
	}
}

func TestValidateAcceptsCompleteQSO(t *testing.T) {
	if err := validQSO().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := validQSO()
	q.TimeOn = "183045"
	if err := q.Validate(); err != nil {
		t.Fatalf("HHMMSS rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QSO)
		reason string
	}{
		{"missing date", func(q *QSO) { q.Date = "" }, "qso_date is missing"},
		{"impossible date", func(q *QSO) { q.Date = "20240231" }, "qso_date"},
		{"bad time", func(q *QSO) { q.TimeOn = "2561" }, "time_on"},
		{"short time", func(q *QSO) { q.TimeOn = "18" }, "time_on"},
		{"missing band", func(q *QSO) { q.Band = "" }, "band is missing"},
		{"unknown band", func(q *QSO) { q.Band = "41m" }, "unknown"},
		{"missing mode", func(q *QSO) { q.Mode = " " }, "mode is missing"},
		{"bad call", func(q *QSO) { q.Call = "D" }, "call"},
		{"bad freq", func(q *QSO) { q.Freq = "seven" }, "freq"},
	}
	for _, tt := range tests {
		q := validQSO()
		tt.mutate(&q)
		err := q.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", tt.name, err)
		}
		if !strings.Contains(err.Error(), tt.reason) {
			t.Fatalf("%s: reason %q not in %q", tt.name, tt.reason, err.Error())
		}
	}
}

func TestADIFFieldOrder(t *testing.T) {
	got := validQSO().ADIF()
	if !strings.HasPrefix(got, "<station_callsign:6>N0CALL<call:6>DL6MHC<qso_date:8>20240315") {
		t.Fatalf("unexpected ADIF prefix: %s", got)
	}
	if !strings.HasSuffix(got, "<eor>") {
		t.Fatalf("missing <eor>: %s", got)
	}
	if strings.Contains(got, "<comment:") {
		t.Fatalf("empty comment should be omitted: %s", got)
	}
}

func TestFromRecord(t *testing.T) {
	q := FromRecord(adif.Record{
		"app_qrzlog_logid": "12345",
		"call":             "dl6mhc",
		"qso_date":         "20240315",
		"time_on":          "1830",
		"band":             "40M",
		"mode":             "ssb",
		"dxcc":             "230",
		"operator":         "N0CALL",
	})
	if q.LogID != "12345" || q.Call != "DL6MHC" || q.Band != "40m" || q.Mode != "SSB" {
		t.Fatalf("unexpected qso: %+v", q)
	}
	if q.DXCC != 230 || q.StationCall != "N0CALL" {
		t.Fatalf("unexpected derived fields: %+v", q)
	}
}

func TestSortNewestFirst(t *testing.T) {
	qsos := []QSO{
		{Call: "A", Date: "20230101", TimeOn: "1200"},
		{Call: "B", Date: "20240101", TimeOn: "0900"},
		{Call: "C", Date: "20240101", TimeOn: "1000"},
	}
	SortNewestFirst(qsos)
	if qsos[0].Call != "C" || qsos[1].Call != "B" || qsos[2].Call != "A" {
		t.Fatalf("unexpected order: %v %v %v", qsos[0].Call, qsos[1].Call, qsos[2].Call)
	}
}

func TestBands(t *testing.T) {
	for _, label := range []string{"20", "20m", "20 M", "20 meters", "70CM"} {
		if !KnownBand(label) {
			t.Fatalf("expected %q to be known", label)
		}
	}
	if KnownBand("21m") {
		t.Fatalf("21m is not a band")
	}
	if got := BandForFreq(7.1); got != "40m" {
		t.Fatalf("BandForFreq(7.1)=%q", got)
	}
	if got := BandForFreq(8); got != "" {
		t.Fatalf("BandForFreq(8)=%q", got)
	}
	if names := BandNames(); names[0] != "2190m" || len(names) != len(bandTable) {
		t.Fatalf("unexpected band names: %v", names)
	}
}

func TestNormalizeDateTime(t *testing.T) {
	if NormalizeDate("2024-03-15") != "20240315" {
		t.Fatalf("date not normalized")
	}
	if NormalizeTime("18:30") != "1830" {
		t.Fatalf("time not normalized")
	}
}
