// Package callsign normalizes and validates amateur-radio callsigns typed by
// the operator.
package callsign

import (
	"regexp"
	"strings"
)

const minLength = 3

var callsignPattern = regexp.MustCompile(`^[A-Z0-9]+(?:/[A-Z0-9]+)*$`)

// Suffixes that mark how a station operates rather than who it is.
var indicatorSuffixes = []string{"/QRP", "/MM", "/AM", "/P", "/M"}

// Normalize trims and uppercases a callsign.
func Normalize(call string) string {
	return strings.ToUpper(strings.TrimSpace(call))
}

// Valid reports whether call looks like a callsign: at least three
// characters of letters, digits and single slashes between segments.
func Valid(call string) bool {
	call = Normalize(call)
	if len(call) < minLength {
		return false
	}
	return callsignPattern.MatchString(call)
}

// StripIndicators removes portable/maritime/QRP suffixes and a leading
// country prefix, so DL/W1ABC/P becomes W1ABC. Calls without indicators are
// returned unchanged.
func StripIndicators(call string) string {
	cleaned := Normalize(call)
	for _, suffix := range indicatorSuffixes {
		if strings.HasSuffix(cleaned, suffix) {
			cleaned = strings.TrimSuffix(cleaned, suffix)
			break
		}
	}
	if idx := strings.IndexByte(cleaned, '/'); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}
	return cleaned
}

// HasIndicators reports whether StripIndicators would change call.
func HasIndicators(call string) bool {
	return StripIndicators(call) != Normalize(call)
}
