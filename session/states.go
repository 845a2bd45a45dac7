package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode"

	lev "github.com/agnivade/levenshtein"

	"qrzlogger/callsign"
	"qrzlogger/journal"
	"qrzlogger/qrz"
	"qrzlogger/qso"
	"qrzlogger/refdata"
)

var commands = []string{"query", "log", "recent", "help", "quit", "exit"}

const callsignHint = "Please enter a callsign with at least 3 characters, only letters, numbers and slashes."

// Purpose: Read the next callsign or command.
// Key aspects: Commands are handled in place; a word close to a command but
// not a plausible callsign gets a suggestion instead of a lookup.
// Upstream: Run, after every finished or abandoned contact.
// Downstream: showRecent, Presenter.Help, suggest.
func (s *Session) awaitCallsign(ctx context.Context) State {
	s.reset()
	s.showRecent(ctx)
	for {
		line, interrupted, ok := s.read(s.deps.UI.Prompt("Enter Callsign", ""))
		if !ok {
			return Exit
		}
		if interrupted || line == "" {
			continue
		}
		fields := strings.Fields(line)
		word := strings.ToLower(fields[0])
		switch {
		case isQuit(word) && len(fields) == 1:
			return Exit
		case word == "help" && len(fields) == 1:
			s.deps.UI.Help()
			continue
		case word == "recent" && len(fields) == 1:
			s.showRecent(ctx)
			continue
		case (word == "query" || word == "log") && len(fields) != 2:
			s.deps.UI.Errorf("Usage: %s <callsign>", word)
			continue
		case word == "query" || word == "log":
			call := callsign.Normalize(fields[1])
			if !callsign.Valid(call) {
				s.deps.UI.Errorf(callsignHint)
				continue
			}
			s.call = call
			s.queryOnly = word == "query"
			s.skipLookup = word == "log"
			return LookupCallsign
		case len(fields) > 1:
			if hint := suggest(word, commands); hint != "" {
				s.deps.UI.Errorf("Unknown command %q, did you mean %q?", word, hint)
			} else {
				s.deps.UI.Errorf("Unknown command %q. Type help for a list.", word)
			}
			continue
		}
		call := callsign.Normalize(line)
		if !strings.ContainsFunc(call, unicode.IsDigit) {
			if hint := suggest(word, commands); hint != "" {
				s.deps.UI.Errorf("Unknown command %q, did you mean %q?", word, hint)
				continue
			}
		}
		if !callsign.Valid(call) {
			s.deps.UI.Errorf(callsignHint)
			continue
		}
		s.call = call
		return LookupCallsign
	}
}

func (s *Session) showRecent(ctx context.Context) {
	if s.deps.Journal == nil {
		return
	}
	entries, err := s.deps.Journal.Recent(ctx, s.opts.RecentLimit)
	if err != nil {
		log.Printf("[SESSION] journal recent: %v", err)
		return
	}
	s.deps.UI.Recent(entries)
}

// Purpose: Show the directory record and local annotations for the call.
// Key aspects: Not found is "no data", followed by a second lookup of the
// call without portable indicators; other failures go through serviceError.
// Upstream: awaitCallsign.
// Downstream: Directory.Lookup, Annotator.Annotate, Presenter panels.
func (s *Session) lookupCallsign(ctx context.Context) State {
	if s.skipLookup {
		return ShowHistory
	}
	rec, err := s.deps.Directory.Lookup(ctx, s.call)
	switch {
	case err == nil:
		s.deps.UI.CallsignPanel(rec, s.annotate(s.call))
		return ShowHistory
	case errors.Is(err, qrz.ErrNotFound):
		s.deps.UI.NoData(s.call, s.annotate(s.call))
	default:
		return s.serviceError("Callsign lookup", err)
	}

	if !callsign.HasIndicators(s.call) {
		return ShowHistory
	}
	stripped := callsign.StripIndicators(s.call)
	if !callsign.Valid(stripped) {
		return ShowHistory
	}
	rec, err = s.deps.Directory.Lookup(ctx, stripped)
	switch {
	case err == nil:
		s.deps.UI.Infof("Showing results for %s instead", stripped)
		s.deps.UI.CallsignPanel(rec, s.annotate(stripped))
	case errors.Is(err, qrz.ErrNotFound):
	case errors.Is(err, qrz.ErrAuth):
		return s.fail(err)
	default:
		log.Printf("[SESSION] fallback lookup %s: %v", stripped, err)
	}
	return ShowHistory
}

func (s *Session) annotate(call string) refdata.Annotation {
	if s.deps.Annotator == nil {
		return refdata.Annotation{}
	}
	return s.deps.Annotator.Annotate(call)
}

func (s *Session) showHistory(ctx context.Context) State {
	qsos, err := s.deps.Logbook.FetchCall(ctx, s.call)
	if err != nil {
		return s.serviceError("Logbook query", err)
	}
	s.deps.UI.History(s.call, qsos)
	if s.queryOnly {
		return s.reset()
	}
	return CollectQsoInput
}

// Purpose: Collect the QSO fields, show them and ask for confirmation.
// Key aspects: Enter keeps the shown default, c cancels, quit exits and a
// "n" answer asks again with the entered values as defaults.
// Upstream: showHistory, uploadQso after a rejected QSO.
// Downstream: newDraft, promptField, Presenter.Review.
func (s *Session) collectQsoInput() State {
	if s.draft == nil {
		d := s.newDraft()
		s.draft = &d
	}
	for _, f := range s.promptedFields() {
		next, done := s.promptField(f)
		if done {
			return next
		}
	}
	s.deps.UI.Review(*s.draft)
	for {
		line, interrupted, ok := s.read(s.deps.UI.Prompt("Is this correct?", "y/n/c/quit"))
		if !ok {
			return Exit
		}
		if interrupted {
			return s.reset()
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return UploadQso
		case "n", "no":
			return CollectQsoInput
		case "c":
			return s.reset()
		case "quit":
			return Exit
		}
	}
}

// promptField asks for one field until the reply is acceptable. done is set
// when the contact was cancelled or the session is over.
func (s *Session) promptField(f field) (State, bool) {
	for {
		def := getField(s.draft, f.key)
		line, interrupted, ok := s.read(s.deps.UI.Prompt(f.label, def))
		if !ok {
			return Exit, true
		}
		if interrupted || line == "c" {
			return s.reset(), true
		}
		if line == "quit" {
			return Exit, true
		}
		if line == "" {
			line = def
		}
		if err := s.setField(s.draft, f.key, line); err != nil {
			s.deps.UI.Errorf("%v", err)
			continue
		}
		return CollectQsoInput, false
	}
}

// Purpose: Upload the reviewed QSO and journal the attempt.
// Key aspects: A probable duplicate (same call, date, time, band and mode
// already journaled) must be confirmed. Local validation failures are not
// journaled; remote rejections go back to input with the values kept.
// Upstream: collectQsoInput.
// Downstream: journal.Fingerprint, Logbook.Insert, Journal.Record.
func (s *Session) uploadQso(ctx context.Context) State {
	q := *s.draft
	if q.StationCall == "" {
		q.StationCall = s.opts.StationCall
	}
	if s.deps.Journal != nil {
		prev, err := s.deps.Journal.FindUploaded(ctx, journal.Fingerprint(q))
		if err != nil {
			log.Printf("[SESSION] journal lookup: %v", err)
		}
		if prev != nil {
			s.deps.UI.Warnf("%s on %s at %s (%s %s) was already uploaded %s as LOGID %s.",
				q.Call, q.Date, q.TimeOn, q.Band, q.Mode, prev.CreatedAt.Local().Format("2006-01-02 15:04"), prev.LogID)
			if !s.confirm("Upload anyway?") {
				return s.reset()
			}
		}
	}

	logid, err := s.deps.Logbook.Insert(ctx, q)
	if errors.Is(err, qso.ErrInvalid) {
		s.deps.UI.Errorf("The QSO is incomplete: %v", err)
		return CollectQsoInput
	}
	s.journal(ctx, q, logid, err)
	switch {
	case err == nil:
	case errors.Is(err, qrz.ErrValidation):
		s.deps.UI.Errorf("QSO upload failed. QRZ.com has sent the following reason:")
		s.deps.UI.Errorf("  %v", err)
		s.deps.UI.Infof("Please review the QSO and try again.")
		return CollectQsoInput
	default:
		return s.serviceError("QSO upload", err)
	}
	s.logid = logid
	s.deps.UI.Successf("QSO successfully uploaded to QRZ.com (LOGID %s)", logid)
	return ConfirmUpload
}

func (s *Session) journal(ctx context.Context, q qso.QSO, logid string, err error) {
	if s.deps.Journal == nil {
		return
	}
	if _, jerr := s.deps.Journal.Record(ctx, journal.NewEntry(q, logid, err)); jerr != nil {
		log.Printf("[SESSION] journal record: %v", jerr)
	}
}

// confirm asks a y/n question; anything but yes is no.
func (s *Session) confirm(question string) bool {
	line, interrupted, ok := s.read(s.deps.UI.Prompt(question, "y/n"))
	if !ok || interrupted {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	}
	return false
}

// confirmUpload reads the stored record back and remembers band, frequency,
// mode and power as the next defaults.
func (s *Session) confirmUpload(ctx context.Context) State {
	qsos, err := s.deps.Logbook.FetchLogID(ctx, s.logid)
	if err != nil {
		return s.serviceError("Reading back LOGID "+s.logid, err)
	}
	s.confirmed = qsos
	if len(qsos) == 0 {
		s.deps.UI.Warnf("LOGID %s was not returned by the logbook yet.", s.logid)
	} else {
		s.deps.UI.Confirmed(qsos)
	}
	s.last = &carry{
		band:  s.draft.Band,
		freq:  s.draft.Freq,
		mode:  s.draft.Mode,
		power: s.draft.TxPwr,
	}
	return s.reset()
}

// suggest returns the candidate closest to word when it is a likely typo.
func suggest(word string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := lev.ComputeDistance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
