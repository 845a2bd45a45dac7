package lotw

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleActivity = `DL6MHC,2024-03-10,18:22:05
K1ABC,2023-01-01,00:00:00
k1abc,2024-01-02,03:04:05
broken line
N0CALL,not-a-date,00:00:00
`

func TestParseActivity(t *testing.T) {
	a, err := ParseActivity(strings.NewReader(sampleActivity))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a.Count() != 2 {
		t.Fatalf("expected 2 calls, got %d", a.Count())
	}
	when, ok := a.LastUpload("dl6mhc")
	if !ok || !when.Equal(time.Date(2024, 3, 10, 18, 22, 5, 0, time.UTC)) {
		t.Fatalf("unexpected DL6MHC upload: %v %v", when, ok)
	}
	when, _ = a.LastUpload("K1ABC")
	if when.Year() != 2024 {
		t.Fatalf("expected newest K1ABC entry, got %v", when)
	}
	if _, ok := a.LastUpload("N0CALL"); ok {
		t.Fatalf("malformed line should be skipped")
	}
}

func TestParseActivityRejectsGarbage(t *testing.T) {
	if _, err := ParseActivity(strings.NewReader("<html>login</html>\n")); err == nil {
		t.Fatalf("expected error for file without records")
	}
	var nilActivity *Activity
	if _, ok := nilActivity.LastUpload("K1ABC"); ok || nilActivity.Count() != 0 {
		t.Fatalf("nil activity must be empty")
	}
}

func TestLoadActivityFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lotw-user-activity.csv")
	if err := os.WriteFile(path, []byte(sampleActivity), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a, err := LoadActivity(path)
	if err != nil || a.Count() != 2 {
		t.Fatalf("load: count=%d err=%v", a.Count(), err)
	}
}

const sampleReport = `ARRL Logbook of the World Status Report
<PROGRAMID:4>LoTW
<eoh>
<CALL:6>DL6MHC<BAND:3>20M<MODE:3>SSB<APP_LoTW_MODEGROUP:5>PHONE<QSL_RCVD:1>Y<DXCC:3>230<eor>
<CALL:5>K1ABC<BAND:3>40M<MODE:2>CW<APP_LoTW_MODEGROUP:2>CW<QSL_RCVD:1>Y<DXCC:3>291<eor>
<CALL:5>JA1XX<BAND:3>15M<MODE:3>FT8<APP_LoTW_MODEGROUP:4>DATA<QSL_RCVD:1>N<DXCC:3>339<eor>
<CALL:4>VK2X<BAND:3>15M<MODE:3>FT8<APP_LoTW_MODEGROUP:4>DATA<QSL_RCVD:1>Y<DXCC:3>150<eor>
<APP_LoTW_EOF>
`

func TestParseConfirmationsModes(t *testing.T) {
	tests := []struct {
		mode string
		want []int
		not  []int
	}{
		{mode: "ALL", want: []int{230, 291, 150}, not: []int{339}},
		{mode: "PHONE", want: []int{230}, not: []int{291, 150}},
		{mode: "cw", want: []int{291}, not: []int{230}},
		{mode: "FT8", want: []int{150}, not: []int{230, 291, 339}},
	}
	for _, tt := range tests {
		c, err := ParseConfirmations(strings.NewReader(sampleReport), tt.mode)
		if err != nil {
			t.Fatalf("%s: parse: %v", tt.mode, err)
		}
		for _, d := range tt.want {
			if !c.Confirmed(d) {
				t.Fatalf("%s: expected %d confirmed", tt.mode, d)
			}
		}
		for _, d := range tt.not {
			if c.Confirmed(d) {
				t.Fatalf("%s: did not expect %d confirmed", tt.mode, d)
			}
		}
		if c.Records() != 4 {
			t.Fatalf("%s: expected 4 records, got %d", tt.mode, c.Records())
		}
	}
}

func TestParseConfirmationsRejectsHTML(t *testing.T) {
	if _, err := ParseConfirmations(strings.NewReader("<html><body>Username/password incorrect</body></html>"), "ALL"); err == nil {
		t.Fatalf("expected error for HTML login page")
	}
}

func TestReportURL(t *testing.T) {
	raw := ReportURL("https://lotw.arrl.org/lotwuser/lotwreport.adi", "N0CALL", "p&ss")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("login") != "N0CALL" || q.Get("password") != "p&ss" || q.Get("qso_qsl") != "yes" || q.Get("qso_qslsince") != "1900-01-01" {
		t.Fatalf("unexpected query: %v", q)
	}
}
