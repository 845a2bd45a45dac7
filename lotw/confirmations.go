package lotw

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"qrzlogger/adif"
)

// Mode groups LoTW reports in APP_LOTW_MODEGROUP.
var modeGroups = map[string]bool{"CW": true, "PHONE": true, "DATA": true}

// Confirmations is the set of DXCC entities confirmed on LoTW for one mode
// filter.
type Confirmations struct {
	Mode    string
	dxcc    map[int]struct{}
	records int
}

// ReportURL builds the authenticated report query for all confirmed QSLs.
func ReportURL(base, user, pass string) string {
	q := url.Values{}
	q.Set("login", user)
	q.Set("password", pass)
	q.Set("qso_query", "1")
	q.Set("qso_qsl", "yes")
	q.Set("qso_qsldetail", "yes")
	q.Set("qso_qslsince", "1900-01-01")
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// LoadConfirmations reads a downloaded lotwreport.adi.
func LoadConfirmations(path, mode string) (*Confirmations, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lotw report: %w", err)
	}
	defer file.Close()
	return ParseConfirmations(file, mode)
}

// ParseConfirmations collects the DXCC numbers of QSL_RCVD=Y records that
// match mode: ALL, a mode group (CW, PHONE, DATA) or an exact ADIF mode.
func ParseConfirmations(r io.Reader, mode string) (*Confirmations, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lotw report: %w", err)
	}
	text := string(raw)
	// LoTW answers bad credentials with an HTML page.
	if !strings.Contains(strings.ToLower(text), "<eoh>") {
		return nil, fmt.Errorf("lotw report is not ADIF; check lotw_user/lotw_pass")
	}
	records, err := adif.DecodeString(text, reportFields...)
	if err != nil {
		return nil, fmt.Errorf("decode lotw report: %w", err)
	}
	c := &Confirmations{
		Mode: strings.ToUpper(strings.TrimSpace(mode)),
		dxcc: make(map[int]struct{}),
	}
	for _, rec := range records {
		c.records++
		if !strings.EqualFold(rec.Get("qsl_rcvd"), "Y") {
			continue
		}
		if !c.matches(rec) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(rec.Get("dxcc")))
		if err != nil || n <= 0 {
			continue
		}
		c.dxcc[n] = struct{}{}
	}
	return c, nil
}

// reportFields are the report fields a confirmation is judged on.
var reportFields = []string{"call", "mode", "app_lotw_modegroup", "qsl_rcvd", "dxcc"}

func (c *Confirmations) matches(rec adif.Record) bool {
	switch {
	case c.Mode == "" || c.Mode == "ALL":
		return true
	case modeGroups[c.Mode]:
		return strings.EqualFold(rec.Get("app_lotw_modegroup"), c.Mode)
	default:
		return strings.EqualFold(rec.Get("mode"), c.Mode)
	}
}

// Confirmed reports whether entity dxcc has a LoTW confirmation.
func (c *Confirmations) Confirmed(dxcc int) bool {
	if c == nil {
		return false
	}
	_, ok := c.dxcc[dxcc]
	return ok
}

// Entities returns the number of confirmed entities.
func (c *Confirmations) Entities() int {
	if c == nil {
		return 0
	}
	return len(c.dxcc)
}

// Records returns the number of QSL records read from the report.
func (c *Confirmations) Records() int {
	if c == nil {
		return 0
	}
	return c.records
}
