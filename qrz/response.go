package qrz

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// apiResponse is a decoded logbook API reply: RESULT=OK&COUNT=1&LOGID=...
type apiResponse struct {
	fields map[string]string
}

func (r apiResponse) get(key string) string {
	return r.fields[key]
}

// result prefers RESULT and falls back to STATUS, which older replies use.
func (r apiResponse) result() string {
	if v := r.fields["RESULT"]; v != "" {
		return strings.ToUpper(v)
	}
	return strings.ToUpper(r.fields["STATUS"])
}

func (r apiResponse) count() int {
	n, err := strconv.Atoi(strings.TrimSpace(r.fields["COUNT"]))
	if err != nil {
		return -1
	}
	return n
}

// parseAPIResponse splits a reply into KEY=value pairs. The ADIF value holds
// raw ampersands (&lt; &gt;), so a pair boundary is an '&' followed by an
// uppercase key and '='.
func parseAPIResponse(body []byte) (apiResponse, error) {
	text := strings.TrimSpace(string(body))
	resp := apiResponse{fields: make(map[string]string)}
	if text == "" {
		return resp, fmt.Errorf("%w: empty logbook response", ErrParse)
	}
	for _, pair := range splitPairs(text) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || !isKey(key) {
			continue
		}
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		resp.fields[key] = value
	}
	if resp.result() == "" {
		return resp, fmt.Errorf("%w: no RESULT in logbook response %q", ErrParse, truncate(text, 120))
	}
	return resp, nil
}

func splitPairs(text string) []string {
	var pairs []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '&' || !startsWithKey(text[i+1:]) {
			continue
		}
		pairs = append(pairs, text[start:i])
		start = i + 1
	}
	return append(pairs, text[start:])
}

func startsWithKey(s string) bool {
	key, _, ok := strings.Cut(s, "=")
	return ok && isKey(key)
}

func isKey(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return false
		}
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
