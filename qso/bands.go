package qso

import (
	"strings"
)

// BandInfo describes an amateur band by ADIF name and frequency range in MHz.
type BandInfo struct {
	Name string
	Min  float64
	Max  float64
}

var bandTable = []BandInfo{
	{Name: "2190m", Min: 0.1357, Max: 0.1378},
	{Name: "630m", Min: 0.472, Max: 0.479},
	{Name: "160m", Min: 1.8, Max: 2.0},
	{Name: "80m", Min: 3.5, Max: 4.0},
	{Name: "60m", Min: 5.06, Max: 5.45},
	{Name: "40m", Min: 7.0, Max: 7.3},
	{Name: "30m", Min: 10.1, Max: 10.15},
	{Name: "20m", Min: 14.0, Max: 14.35},
	{Name: "17m", Min: 18.068, Max: 18.168},
	{Name: "15m", Min: 21.0, Max: 21.45},
	{Name: "12m", Min: 24.89, Max: 24.99},
	{Name: "10m", Min: 28.0, Max: 29.7},
	{Name: "6m", Min: 50, Max: 54},
	{Name: "4m", Min: 70, Max: 71},
	{Name: "2m", Min: 144, Max: 148},
	{Name: "1.25m", Min: 222, Max: 225},
	{Name: "70cm", Min: 420, Max: 450},
	{Name: "33cm", Min: 902, Max: 928},
	{Name: "23cm", Min: 1240, Max: 1300},
	{Name: "13cm", Min: 2300, Max: 2450},
}

var bandLookup = func() map[string]BandInfo {
	m := make(map[string]BandInfo, len(bandTable))
	for _, entry := range bandTable {
		m[entry.Name] = entry
	}
	return m
}()

// NormalizeBand returns the canonical lowercase band name for label. "20",
// "20 M" and "20 meters" all become "20m".
func NormalizeBand(label string) string {
	cleaned := strings.ToLower(strings.TrimSpace(label))
	if cleaned == "" {
		return ""
	}
	for _, pair := range []struct{ old, new string }{
		{"meters", "m"}, {"meter", "m"}, {"metres", "m"}, {"metre", "m"},
		{"centimeters", "cm"}, {"centimetres", "cm"},
	} {
		cleaned = strings.ReplaceAll(cleaned, pair.old, pair.new)
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return ""
	}
	if last := cleaned[len(cleaned)-1]; last >= '0' && last <= '9' {
		cleaned += "m"
	}
	return cleaned
}

// KnownBand reports whether label names a band in the table.
func KnownBand(label string) bool {
	_, ok := bandLookup[NormalizeBand(label)]
	return ok
}

// BandNames lists the known band names from longest wavelength to shortest.
func BandNames() []string {
	names := make([]string, len(bandTable))
	for i, b := range bandTable {
		names[i] = b.Name
	}
	return names
}

// BandForFreq returns the band containing freq (MHz), or "".
func BandForFreq(freq float64) string {
	for _, b := range bandTable {
		if freq >= b.Min && freq <= b.Max {
			return b.Name
		}
	}
	return ""
}
