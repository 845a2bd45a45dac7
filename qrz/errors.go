// Package qrz talks to the two QRZ.com services a logging session needs: the
// XML directory (login, callsign lookup) and the logbook API (fetch, insert,
// status). Every failure is classified against the sentinels below so callers
// can route on errors.Is.
package qrz

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth: credentials or API key rejected. Not recoverable in-session.
	ErrAuth = errors.New("qrz: authentication failed")
	// ErrService: transport failure, HTTP error, rate limit or any service
	// error that is not one of the more specific kinds.
	ErrService = errors.New("qrz: service error")
	// ErrValidation: the QSO was rejected locally or by the logbook.
	ErrValidation = errors.New("qrz: qso rejected")
	// ErrNotFound: the directory has no record for the callsign.
	ErrNotFound = errors.New("qrz: callsign not found")
	// ErrSessionExpired: the directory session key is no longer valid; a new
	// login recovers.
	ErrSessionExpired = errors.New("qrz: session expired")
	// ErrParse: the response could not be understood. Always also ErrService.
	ErrParse = fmt.Errorf("%w: malformed response", ErrService)
)
