package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"qrzlogger/qso"
)

// field is one prompted QSO value; key matches config.QSOFields.
type field struct {
	key   string
	label string
}

var qsoFields = []field{
	{"date", "QSO Date"},
	{"time", "QSO Time"},
	{"band", "Band"},
	{"freq", "Frequency"},
	{"mode", "Mode"},
	{"rst_rcvd", "RST Received"},
	{"rst_sent", "RST Sent"},
	{"tx_pwr", "Power (in W)"},
	{"comment", "Comment"},
}

// promptedFields is every field, or in contest mode only the configured ones.
func (s *Session) promptedFields() []field {
	if !s.opts.Contest {
		return qsoFields
	}
	wanted := make(map[string]bool, len(s.opts.ContestFields))
	for _, k := range s.opts.ContestFields {
		wanted[k] = true
	}
	var out []field
	for _, f := range qsoFields {
		if wanted[f.key] {
			out = append(out, f)
		}
	}
	return out
}

// Purpose: Build the defaults for a new contact.
// Key aspects: Precedence is contest defaults (contest mode), then values
// carried from the last confirmed QSO, then qso_defaults, then date/time of
// now in UTC. The frequency follows the band table unless carried.
// Upstream: collectQsoInput.
// Downstream: setField.
func (s *Session) newDraft() qso.QSO {
	now := s.opts.Now().UTC()
	d := s.opts.Defaults
	q := qso.QSO{
		StationCall: s.opts.StationCall,
		Call:        s.call,
		Date:        now.Format(qso.DateLayout),
		TimeOn:      now.Format(qso.TimeLayout),
		Band:        qso.NormalizeBand(d.Band),
		Mode:        strings.ToUpper(d.Mode),
		RSTSent:     d.RSTSent,
		RSTRcvd:     d.RSTRcvd,
		TxPwr:       d.TxPwr,
		Comment:     d.Comment,
	}
	q.Freq = s.freqForBand(q.Band)
	if c := s.last; c != nil {
		q.Band, q.Freq, q.Mode, q.TxPwr = c.band, c.freq, c.mode, c.power
	}
	if s.opts.Contest {
		for _, f := range qsoFields {
			if v, ok := s.opts.ContestDefaults[f.key]; ok {
				if err := s.setField(&q, f.key, v); err != nil {
					s.deps.UI.Warnf("contest default %s: %v", f.key, err)
				}
			}
		}
	}
	return q
}

func (s *Session) freqForBand(band string) string {
	return s.opts.BandFreqs[qso.NormalizeBand(band)]
}

func getField(q *qso.QSO, key string) string {
	switch key {
	case "date":
		return q.Date
	case "time":
		return q.TimeOn
	case "band":
		return q.Band
	case "freq":
		return q.Freq
	case "mode":
		return q.Mode
	case "rst_rcvd":
		return q.RSTRcvd
	case "rst_sent":
		return q.RSTSent
	case "tx_pwr":
		return q.TxPwr
	case "comment":
		return q.Comment
	}
	return ""
}

// setField normalizes and stores one reply on q. The error text is shown to
// the operator before asking again.
func (s *Session) setField(q *qso.QSO, key, v string) error {
	v = strings.TrimSpace(v)
	switch key {
	case "date":
		d := qso.NormalizeDate(v)
		if _, err := time.Parse(qso.DateLayout, d); err != nil || len(d) != 8 {
			return fmt.Errorf("%q is not a date, use YYYYMMDD", v)
		}
		q.Date = d
	case "time":
		t := qso.NormalizeTime(v)
		layout := qso.TimeLayout
		if len(t) == 6 {
			layout = qso.TimeLayoutLong
		}
		if _, err := time.Parse(layout, t); err != nil || (len(t) != 4 && len(t) != 6) {
			return fmt.Errorf("%q is not a time, use HHMM", v)
		}
		q.TimeOn = t
	case "band":
		b := qso.NormalizeBand(v)
		if !qso.KnownBand(b) {
			if hint := suggest(b, qso.BandNames()); hint != "" {
				return fmt.Errorf("unknown band %q, did you mean %s?", v, hint)
			}
			return fmt.Errorf("unknown band %q, known bands: %s", v, strings.Join(qso.BandNames(), " "))
		}
		q.Band = b
		if !freqInBand(q.Freq, b) {
			q.Freq = s.freqForBand(b)
		}
	case "freq":
		if v == "" {
			q.Freq = ""
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%q is not a frequency in MHz", v)
		}
		if band := qso.BandForFreq(f); band != "" && band != q.Band {
			q.Band = band
			s.deps.UI.Infof("Band set to %s for %s MHz", band, v)
		}
		q.Freq = v
	case "mode":
		if v == "" {
			return fmt.Errorf("mode is required")
		}
		q.Mode = strings.ToUpper(v)
	case "rst_rcvd":
		q.RSTRcvd = v
	case "rst_sent":
		q.RSTSent = v
	case "tx_pwr":
		q.TxPwr = v
	case "comment":
		q.Comment = v
	default:
		return fmt.Errorf("unknown field %q", key)
	}
	return nil
}

func freqInBand(freq, band string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(freq), 64)
	if err != nil {
		return false
	}
	return qso.BandForFreq(f) == band
}
