// Package session drives one interactive logging run: read a callsign, look
// it up, show the logbook history, collect and upload a QSO, then read it
// back. Each step is a method returning the next State, so every transition
// and error path can be exercised on its own.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"qrzlogger/config"
	"qrzlogger/journal"
	"qrzlogger/qrz"
	"qrzlogger/qso"
	"qrzlogger/refdata"
	"qrzlogger/ui"
)

// State is a step of the logging loop.
type State int

const (
	AwaitCallsign State = iota
	LookupCallsign
	ShowHistory
	CollectQsoInput
	UploadQso
	ConfirmUpload
	Exit
)

func (s State) String() string {
	switch s {
	case AwaitCallsign:
		return "AwaitCallsign"
	case LookupCallsign:
		return "LookupCallsign"
	case ShowHistory:
		return "ShowHistory"
	case CollectQsoInput:
		return "CollectQsoInput"
	case UploadQso:
		return "UploadQso"
	case ConfirmUpload:
		return "ConfirmUpload"
	case Exit:
		return "Exit"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Directory looks up callsign records.
type Directory interface {
	Lookup(ctx context.Context, call string) (*qrz.Callsign, error)
}

// Logbook reads and writes the remote logbook.
type Logbook interface {
	FetchCall(ctx context.Context, call string) ([]qso.QSO, error)
	FetchLogID(ctx context.Context, logid string) ([]qso.QSO, error)
	Insert(ctx context.Context, q qso.QSO) (string, error)
}

// Journal records upload attempts locally.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (int64, error)
	Recent(ctx context.Context, n int) ([]journal.Entry, error)
	FindUploaded(ctx context.Context, fingerprint string) (*journal.Entry, error)
}

// Annotator adds what the local reference datasets know about a call.
type Annotator interface {
	Annotate(call string) refdata.Annotation
}

// Input reads one line per prompt. It returns io.EOF at end of input and
// ui.ErrInterrupt on Ctrl+C.
type Input interface {
	ReadLine(prompt string) (string, error)
}

// Deps are the collaborators of a session. Journal and Annotator may be nil.
type Deps struct {
	Directory Directory
	Logbook   Logbook
	Journal   Journal
	Annotator Annotator
	Input     Input
	UI        *ui.Presenter
}

// Options are the settings a session reads; they do not change during a run.
type Options struct {
	StationCall     string
	Defaults        config.QSODefaults
	BandFreqs       map[string]string
	Contest         bool
	ContestFields   []string
	ContestDefaults map[string]string
	RecentLimit     int
	Now             func() time.Time
}

// OptionsFromConfig derives session options; contest forces contest mode on.
func OptionsFromConfig(cfg *config.Config, contest bool) Options {
	return Options{
		StationCall:     cfg.QRZ.StationCall,
		Defaults:        cfg.QSODefaults,
		BandFreqs:       cfg.BandFreqs,
		Contest:         contest || cfg.Contest.Enabled,
		ContestFields:   cfg.Contest.PromptFields,
		ContestDefaults: cfg.Contest.Defaults,
		RecentLimit:     5,
	}
}

// carry is what the last confirmed QSO hands to the next one.
type carry struct {
	band, freq, mode, power string
}

// Session is one logging run. It is not safe for concurrent use.
type Session struct {
	deps Deps
	opts Options

	call       string
	skipLookup bool
	queryOnly  bool
	draft      *qso.QSO
	logid      string
	last       *carry
	confirmed  []qso.QSO
	fatal      error
}

// New builds a session.
func New(deps Deps, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	return &Session{deps: deps, opts: opts}
}

// Purpose: Run the state machine until the operator quits.
// Key aspects: Returns nil on a normal exit and the fatal error (ErrAuth or
// an input failure) otherwise; recoverable errors never leave the loop.
// Upstream: main.
// Downstream: Step.
func (s *Session) Run(ctx context.Context) error {
	state := AwaitCallsign
	for state != Exit {
		if err := ctx.Err(); err != nil {
			return err
		}
		state = s.Step(ctx, state)
	}
	return s.fatal
}

// Step executes one state and returns the next.
func (s *Session) Step(ctx context.Context, state State) State {
	switch state {
	case AwaitCallsign:
		return s.awaitCallsign(ctx)
	case LookupCallsign:
		return s.lookupCallsign(ctx)
	case ShowHistory:
		return s.showHistory(ctx)
	case CollectQsoInput:
		return s.collectQsoInput()
	case UploadQso:
		return s.uploadQso(ctx)
	case ConfirmUpload:
		return s.confirmUpload(ctx)
	default:
		return Exit
	}
}

// Call is the callsign being worked.
func (s *Session) Call() string {
	return s.call
}

// Draft returns a copy of the QSO being entered, if any.
func (s *Session) Draft() (qso.QSO, bool) {
	if s.draft == nil {
		return qso.QSO{}, false
	}
	return *s.draft, true
}

// LastConfirmed returns the records read back after the last upload.
func (s *Session) LastConfirmed() []qso.QSO {
	return s.confirmed
}

// fail ends the session with err.
func (s *Session) fail(err error) State {
	s.fatal = err
	log.Printf("[SESSION] fatal: %v", err)
	if errors.Is(err, qrz.ErrAuth) {
		s.deps.UI.Errorf("Authentication with QRZ.com failed: %v", err)
		s.deps.UI.Errorf("Check qrz_user, qrz_pass and api_key in the configuration file.")
	}
	return Exit
}

// serviceError routes a client failure: ErrAuth ends the session, anything
// else is reported and the loop returns to the callsign prompt.
func (s *Session) serviceError(action string, err error) State {
	if errors.Is(err, qrz.ErrAuth) {
		return s.fail(err)
	}
	log.Printf("[SESSION] %s failed: %v", action, err)
	s.deps.UI.Errorf("%s failed: %v", action, err)
	return s.reset()
}

// reset drops per-contact state and returns to the callsign prompt.
func (s *Session) reset() State {
	s.call = ""
	s.draft = nil
	s.logid = ""
	s.skipLookup = false
	s.queryOnly = false
	return AwaitCallsign
}

// read prompts once. EOF ends the session cleanly; other input failures are
// fatal. ok is false in both cases.
func (s *Session) read(prompt string) (line string, interrupted, ok bool) {
	line, err := s.deps.Input.ReadLine(prompt)
	switch {
	case err == nil:
		return line, false, true
	case errors.Is(err, ui.ErrInterrupt):
		return "", true, true
	case errors.Is(err, io.EOF):
		return "", false, false
	default:
		s.fatal = fmt.Errorf("read input: %w", err)
		return "", false, false
	}
}

func isQuit(word string) bool {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "quit", "exit", ":q":
		return true
	}
	return false
}
