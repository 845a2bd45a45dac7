package qrz

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qrzlogger/adif"
	"qrzlogger/qso"
)

// DefaultLogbookURL is the logbook API endpoint.
const DefaultLogbookURL = "https://logbook.qrz.com/api"

// LogbookConfig configures a Logbook.
type LogbookConfig struct {
	URL         string
	APIKey      string
	StationCall string
	Agent       string
	Timeout     time.Duration
	Client      *http.Client
}

// Logbook is a client for the logbook API of one station's logbook.
type Logbook struct {
	http    poster
	key     string
	station string
}

// NewLogbook builds a logbook client.
func NewLogbook(cfg LogbookConfig) *Logbook {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultLogbookURL
	}
	return &Logbook{
		http:    newPoster(endpoint, cfg.Agent, cfg.Timeout, cfg.Client),
		key:     cfg.APIKey,
		station: strings.ToUpper(strings.TrimSpace(cfg.StationCall)),
	}
}

// call posts one action and maps authentication failures.
func (l *Logbook) call(ctx context.Context, form url.Values) (apiResponse, error) {
	form.Set("KEY", l.key)
	body, err := l.http.post(ctx, form)
	if err != nil {
		return apiResponse{}, err
	}
	resp, err := parseAPIResponse(body)
	if keyRejected(body, resp) {
		return apiResponse{}, fmt.Errorf("%w: invalid api key", ErrAuth)
	}
	if err != nil {
		return resp, err
	}
	if resp.result() == "AUTH" {
		reason := resp.get("REASON")
		if reason == "" {
			reason = "api key rejected"
		}
		return resp, fmt.Errorf("%w: %s", ErrAuth, reason)
	}
	return resp, nil
}

// keyRejected looks for the key rejection text only in REASON, or in the
// first line of a body that has no key=value pairs at all. Logged QSOs may
// carry the same words in their ADIF.
func keyRejected(body []byte, resp apiResponse) bool {
	const marker = "invalid api key"
	if strings.Contains(strings.ToLower(resp.get("REASON")), marker) {
		return true
	}
	if len(resp.fields) > 0 {
		return false
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(body)), "\n")
	return strings.Contains(strings.ToLower(first), marker)
}

// Status checks the API key and returns the logbook's STATUS fields.
func (l *Logbook) Status(ctx context.Context) (map[string]string, error) {
	resp, err := l.call(ctx, url.Values{"ACTION": {"STATUS"}})
	if err != nil {
		return nil, err
	}
	if resp.result() != "OK" {
		return nil, fmt.Errorf("%w: status: %s", ErrService, resp.get("REASON"))
	}
	return resp.fields, nil
}

// Purpose: Fetch QSOs matching option (CALL:<call>, LOGIDS:<id>, ...).
// Key aspects: Unescapes the HTML-escaped ADIF, decodes it and orders the
// result newest first; no matches is an empty slice.
// Upstream: session history and confirmation states.
// Downstream: call, adif.DecodeString, qso.FromRecord.
func (l *Logbook) Fetch(ctx context.Context, option string) ([]qso.QSO, error) {
	log.Printf("[LOGBOOK] fetch %s", option)
	resp, err := l.call(ctx, url.Values{
		"ACTION": {"FETCH"},
		"OPTION": {"TYPE:ADIF," + option},
	})
	if err != nil {
		log.Printf("[LOGBOOK] fetch %s failed: %v", option, err)
		return nil, err
	}
	switch resp.result() {
	case "OK":
	case "FAIL":
		reason := resp.get("REASON")
		if resp.count() == 0 || strings.Contains(strings.ToLower(reason), "no log entries") {
			return []qso.QSO{}, nil
		}
		return nil, fmt.Errorf("%w: fetch: %s", ErrService, reason)
	default:
		return nil, fmt.Errorf("%w: fetch: unexpected result %s", ErrService, resp.result())
	}

	text := html.UnescapeString(resp.get("ADIF"))
	if strings.TrimSpace(text) == "" {
		return []qso.QSO{}, nil
	}
	records, err := adif.DecodeString(text, qso.RecordFields...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	qsos := make([]qso.QSO, 0, len(records))
	for _, rec := range records {
		qsos = append(qsos, qso.FromRecord(rec))
	}
	qso.SortNewestFirst(qsos)
	log.Printf("[LOGBOOK] fetch %s: %d qso(s)", option, len(qsos))
	return qsos, nil
}

// FetchCall returns the logged QSOs with call.
func (l *Logbook) FetchCall(ctx context.Context, call string) ([]qso.QSO, error) {
	return l.Fetch(ctx, "CALL:"+strings.ToUpper(strings.TrimSpace(call)))
}

// FetchLogID returns the QSO stored under logid.
func (l *Logbook) FetchLogID(ctx context.Context, logid string) ([]qso.QSO, error) {
	return l.Fetch(ctx, "LOGIDS:"+strings.TrimSpace(logid))
}

// Purpose: Upload one QSO and return the assigned log id.
// Key aspects: Validates locally first so an incomplete QSO never reaches the
// network; RESULT=FAIL carries the service's REASON as ErrValidation.
// Upstream: session upload state.
// Downstream: qso.Validate, qso.ADIF, call.
func (l *Logbook) Insert(ctx context.Context, q qso.QSO) (string, error) {
	if q.StationCall == "" {
		q.StationCall = l.station
	}
	if err := q.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	record := q.ADIF()
	log.Printf("[LOGBOOK] insert %s %s %s %s %s", q.Call, q.Date, q.TimeOn, q.Band, q.Mode)
	resp, err := l.call(ctx, url.Values{
		"ACTION": {"INSERT"},
		"ADIF":   {record},
	})
	if err != nil {
		log.Printf("[LOGBOOK] insert %s failed: %v", q.Call, err)
		return "", err
	}
	switch resp.result() {
	case "OK", "REPLACE":
		logid := strings.TrimSpace(resp.get("LOGID"))
		if logid == "" {
			return "", fmt.Errorf("%w: insert reply without LOGID", ErrParse)
		}
		log.Printf("[LOGBOOK] insert %s: logid %s", q.Call, logid)
		return logid, nil
	case "FAIL":
		reason := resp.get("REASON")
		if reason == "" {
			reason = "rejected without reason"
		}
		log.Printf("[LOGBOOK] insert %s rejected: %s", q.Call, reason)
		return "", fmt.Errorf("%w: %s", ErrValidation, reason)
	default:
		return "", fmt.Errorf("%w: insert: unexpected result %s", ErrService, resp.result())
	}
}
