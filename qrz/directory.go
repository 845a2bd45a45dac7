package qrz

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultDirectoryURL is the XML directory endpoint.
const DefaultDirectoryURL = "https://xmldata.qrz.com/xml/current/"

// Session is an authenticated directory session.
type Session struct {
	Key     string
	Count   string
	SubExp  string
	GMTime  string
	Message string
}

// Subscriber reports whether the account has an XML subscription; without
// one the directory withholds most address fields.
func (s *Session) Subscriber() bool {
	return s != nil && s.SubExp != "" && !strings.EqualFold(s.SubExp, "non-subscriber")
}

type xmlSession struct {
	Key     string `xml:"Key"`
	Count   string `xml:"Count"`
	SubExp  string `xml:"SubExp"`
	GMTime  string `xml:"GMTime"`
	Message string `xml:"Message"`
	Error   string `xml:"Error"`
}

type xmlDatabase struct {
	XMLName  xml.Name    `xml:"QRZDatabase"`
	Session  *xmlSession `xml:"Session"`
	Callsign *Callsign   `xml:"Callsign"`
}

// DirectoryConfig configures a Directory.
type DirectoryConfig struct {
	URL     string
	User    string
	Pass    string
	Agent   string
	Timeout time.Duration
	Client  *http.Client
}

// Directory is a client for the XML callsign directory. It is not safe for
// concurrent use.
type Directory struct {
	http    poster
	user    string
	pass    string
	agent   string
	session *Session
}

// NewDirectory builds a directory client.
func NewDirectory(cfg DirectoryConfig) *Directory {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultDirectoryURL
	}
	return &Directory{
		http:  newPoster(endpoint, cfg.Agent, cfg.Timeout, cfg.Client),
		user:  cfg.User,
		pass:  cfg.Pass,
		agent: cfg.Agent,
	}
}

// Session returns the current session, or nil before Login.
func (d *Directory) Session() *Session {
	return d.session
}

// Purpose: Authenticate and store a fresh session key.
// Key aspects: Any service error text or a missing key is ErrAuth.
// Upstream: main startup, Lookup on session expiry.
// Downstream: poster.post, parseDatabase.
func (d *Directory) Login(ctx context.Context) (*Session, error) {
	log.Printf("[QRZ] login start: %s", d.user)
	body, err := d.http.post(ctx, url.Values{
		"username": {d.user},
		"password": {d.pass},
		"agent":    {d.agent},
	})
	if err != nil {
		log.Printf("[QRZ] login http error: %v", err)
		return nil, err
	}
	db, err := parseDatabase(body)
	if err != nil {
		log.Printf("[QRZ] login xml error: %v", err)
		return nil, err
	}
	if db.Session == nil {
		return nil, fmt.Errorf("%w: no session element", ErrParse)
	}
	if msg := strings.TrimSpace(db.Session.Error); msg != "" {
		log.Printf("[QRZ] login failed: %s", msg)
		return nil, classifyLoginError(msg)
	}
	if strings.TrimSpace(db.Session.Key) == "" {
		log.Printf("[QRZ] login failed: empty key")
		return nil, fmt.Errorf("%w: no session key returned", ErrAuth)
	}
	d.session = &Session{
		Key:     strings.TrimSpace(db.Session.Key),
		Count:   db.Session.Count,
		SubExp:  db.Session.SubExp,
		GMTime:  db.Session.GMTime,
		Message: db.Session.Message,
	}
	log.Printf("[QRZ] login success, subscription: %s", d.session.SubExp)
	return d.session, nil
}

// Lookup fetches the directory record for call, logging in first when there
// is no session and once more when the session has expired.
func (d *Directory) Lookup(ctx context.Context, call string) (*Callsign, error) {
	if d.session == nil {
		if _, err := d.Login(ctx); err != nil {
			return nil, err
		}
	}
	rec, err := d.lookupOnce(ctx, call)
	if errors.Is(err, ErrSessionExpired) {
		log.Printf("[QRZ] session expired, logging in again")
		d.session = nil
		if _, lerr := d.Login(ctx); lerr != nil {
			return nil, lerr
		}
		rec, err = d.lookupOnce(ctx, call)
	}
	return rec, err
}

func (d *Directory) lookupOnce(ctx context.Context, call string) (*Callsign, error) {
	log.Printf("[QRZ] lookup: %s", call)
	body, err := d.http.post(ctx, url.Values{
		"s":        {d.session.Key},
		"callsign": {call},
	})
	if err != nil {
		log.Printf("[QRZ] lookup http error: %v", err)
		return nil, err
	}
	rec, err := parseCallsignResponse(body)
	if err != nil {
		log.Printf("[QRZ] lookup %s: %v", call, err)
		return nil, err
	}
	log.Printf("[QRZ] result call=%s country=%q grid=%q", rec.Call, rec.Country, rec.Grid)
	return rec, nil
}

func parseDatabase(body []byte) (*xmlDatabase, error) {
	var db xmlDatabase
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&db); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &db, nil
}

// parseCallsignResponse is the explicit parse step of a lookup: it either
// yields a record with a call or a classified error.
func parseCallsignResponse(body []byte) (*Callsign, error) {
	db, err := parseDatabase(body)
	if err != nil {
		return nil, err
	}
	if db.Session != nil {
		if msg := strings.TrimSpace(db.Session.Error); msg != "" {
			return nil, classifyLookupError(msg)
		}
	}
	if db.Callsign == nil {
		return nil, fmt.Errorf("%w: no callsign element", ErrParse)
	}
	if strings.TrimSpace(db.Callsign.Call) == "" {
		return nil, fmt.Errorf("%w: callsign record without call", ErrParse)
	}
	rec := *db.Callsign
	rec.Call = strings.ToUpper(strings.TrimSpace(rec.Call))
	return &rec, nil
}

// classifyLoginError keeps ErrAuth for rejected credentials; anything else
// the service reports at login (maintenance, connection limits) is retried.
func classifyLoginError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "password"), strings.Contains(lower, "username"),
		strings.Contains(lower, "invalid user"), strings.Contains(lower, "user not found"):
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	default:
		return fmt.Errorf("%w: %s", ErrService, msg)
	}
}

func classifyLookupError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.HasPrefix(lower, "not found"):
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case strings.Contains(lower, "session timeout"), strings.Contains(lower, "invalid session key"):
		return fmt.Errorf("%w: %s", ErrSessionExpired, msg)
	case strings.Contains(lower, "password incorrect"), strings.Contains(lower, "username"):
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	default:
		return fmt.Errorf("%w: %s", ErrService, msg)
	}
}
