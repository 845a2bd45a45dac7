package qrz

import (
	"strconv"
	"strings"
)

// Callsign is the directory record for one station. Values are kept as the
// service sends them; empty means the field was absent or hidden.
type Callsign struct {
	Call     string `xml:"call"`
	Xref     string `xml:"xref"`
	Aliases  string `xml:"aliases"`
	DXCC     string `xml:"dxcc"`
	Fname    string `xml:"fname"`
	Name     string `xml:"name"`
	Addr1    string `xml:"addr1"`
	Addr2    string `xml:"addr2"`
	State    string `xml:"state"`
	Zip      string `xml:"zip"`
	Country  string `xml:"country"`
	Ccode    string `xml:"ccode"`
	Lat      string `xml:"lat"`
	Lon      string `xml:"lon"`
	Grid     string `xml:"grid"`
	County   string `xml:"county"`
	Class    string `xml:"class"`
	Email    string `xml:"email"`
	QSLMgr   string `xml:"qslmgr"`
	URL      string `xml:"url"`
	CQZone   string `xml:"cqzone"`
	ITUZone  string `xml:"ituzone"`
	LoTW     string `xml:"lotw"`
	EQSL     string `xml:"eqsl"`
	MQSL     string `xml:"mqsl"`
	IOTA     string `xml:"iota"`
	Nickname string `xml:"nickname"`
	Born     string `xml:"born"`
	Bio      string `xml:"bio"`
	ModDate  string `xml:"moddate"`
}

// FullName joins first name (or nickname) and last name.
func (c *Callsign) FullName() string {
	first := c.Fname
	if c.Nickname != "" {
		first = c.Nickname
	}
	return strings.TrimSpace(first + " " + c.Name)
}

// DXCCNumber returns the entity number, or 0 when absent.
func (c *Callsign) DXCCNumber() int {
	n, err := strconv.Atoi(strings.TrimSpace(c.DXCC))
	if err != nil {
		return 0
	}
	return n
}

// Coordinates returns the station latitude/longitude (east positive).
func (c *Callsign) Coordinates() (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(c.Lat), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(c.Lon), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// UsesLoTW reports the operator's own LoTW flag.
func (c *Callsign) UsesLoTW() bool {
	return c.LoTW == "1"
}
