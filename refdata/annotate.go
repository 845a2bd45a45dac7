package refdata

import (
	"time"

	"qrzlogger/callsign"
)

// Annotation is what the local datasets know about a callsign.
type Annotation struct {
	Found     bool
	Country   string
	Continent string
	DXCC      int
	CQZone    int
	ITUZone   int

	LoTWKnown      bool
	LoTWUser       bool
	LoTWLastUpload time.Time

	ConfirmationsKnown bool
	Confirmed          bool
}

// LoTWStaleAfter is how long a LoTW user may go without uploading before the
// callsign panel warns that a confirmation is unlikely.
const LoTWStaleAfter = 365 * 24 * time.Hour

// LoTWStale reports whether a known LoTW user last uploaded more than
// LoTWStaleAfter before now.
func (a Annotation) LoTWStale(now time.Time) bool {
	if !a.LoTWUser || a.LoTWLastUpload.IsZero() {
		return false
	}
	return now.Sub(a.LoTWLastUpload) > LoTWStaleAfter
}

// Annotate looks call up in every loaded dataset. Missing datasets leave
// their part of the annotation unset.
func (d *Data) Annotate(call string) Annotation {
	var a Annotation
	if d == nil {
		return a
	}
	call = callsign.Normalize(call)
	if info, ok := d.CTY.LookupCallsign(call); ok {
		a.Found = true
		a.Country = info.Country
		a.Continent = info.Continent
		a.DXCC = info.ADIF
		a.CQZone = info.CQZone
		a.ITUZone = info.ITUZone
	}
	if d.Activity != nil {
		a.LoTWKnown = true
		when, ok := d.Activity.LastUpload(call)
		if !ok {
			when, ok = d.Activity.LastUpload(callsign.StripIndicators(call))
		}
		a.LoTWUser = ok
		a.LoTWLastUpload = when
	}
	if d.Confirmations != nil && a.DXCC > 0 {
		a.ConfirmationsKnown = true
		a.Confirmed = d.Confirmations.Confirmed(a.DXCC)
	}
	return a
}
