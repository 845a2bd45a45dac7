// Package download fetches reference datasets over HTTP. A file younger than
// the request's MaxAge is left alone; older files are revalidated with
// conditional headers and replaced atomically, with a JSON sidecar recording
// what was fetched and when.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const MetadataSuffix = ".status.json"

// Status indicates what a Download call did with the local copy.
type Status string

const (
	StatusFresh       Status = "fresh"
	StatusUpdated     Status = "updated"
	StatusNotModified Status = "not_modified"
	StatusSameContent Status = "same_content"
)

// Query parameters that must never be written to disk.
var secretParams = []string{"password", "pass", "pwd", "key", "api_key", "token"}

// Metadata tracks the last successful download/check.
type Metadata struct {
	URL          string    `json:"url,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at,omitempty"`
	CheckedAt    time.Time `json:"checked_at,omitempty"`
	SizeBytes    int64     `json:"size_bytes,omitempty"`
	SHA256       string    `json:"sha256,omitempty"`
	ProcessedAt  time.Time `json:"processed_at,omitempty"`
	ProcessedOK  bool      `json:"processed_ok,omitempty"`
}

// Request configures one dataset download.
type Request struct {
	URL         string
	Destination string
	// MaxAge is the refresh window; zero means always revalidate.
	MaxAge    time.Duration
	Timeout   time.Duration
	Force     bool
	UserAgent string
	Client    *http.Client
	// Now is used for the freshness check; nil means time.Now.
	Now func() time.Time
}

// Result summarizes the download outcome.
type Result struct {
	Status  Status
	Meta    Metadata
	Bytes   int64
	ModTime time.Time
}

// MetadataPath returns the metadata sidecar path for a destination.
func MetadataPath(dest string) string {
	if strings.TrimSpace(dest) == "" {
		return ""
	}
	return dest + MetadataSuffix
}

// Purpose: Bring a cached dataset file up to date.
// Key aspects: Skips the network while the file is inside MaxAge, otherwise
// uses ETag/Last-Modified, hashes the body and swaps the file atomically.
// Upstream: refdata.Refresh.
// Downstream: HTTP client, metadata read/write helpers.
func Download(ctx context.Context, req Request) (Result, error) {
	var result Result
	rawURL := strings.TrimSpace(req.URL)
	dest := strings.TrimSpace(req.Destination)
	if rawURL == "" {
		return result, errors.New("download: URL is empty")
	}
	if dest == "" {
		return result, errors.New("download: destination is empty")
	}
	now := time.Now
	if req.Now != nil {
		now = req.Now
	}
	metaPath := MetadataPath(dest)

	destInfo, err := os.Stat(dest)
	destExists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return result, fmt.Errorf("download: stat destination: %w", err)
	}
	if destExists && !req.Force && req.MaxAge > 0 && now().Sub(destInfo.ModTime()) < req.MaxAge {
		result.Status = StatusFresh
		result.ModTime = destInfo.ModTime()
		if meta, _ := ReadMetadata(metaPath); meta != nil {
			result.Meta = *meta
		}
		return result, nil
	}

	prevMeta, _ := ReadMetadata(metaPath)
	if prevMeta == nil && destExists {
		prevMeta = &Metadata{
			LastModified: destInfo.ModTime().UTC().Format(http.TimeFormat),
			SizeBytes:    destInfo.Size(),
		}
	}
	force := req.Force || !destExists

	client := req.Client
	if client == nil {
		client = &http.Client{Timeout: req.Timeout}
	}
	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return result, fmt.Errorf("download: build request: %w", redactURLError(err))
	}
	if !force && prevMeta != nil {
		if prevMeta.ETag != "" {
			httpReq.Header.Set("If-None-Match", prevMeta.ETag)
		}
		if prevMeta.LastModified != "" {
			httpReq.Header.Set("If-Modified-Since", prevMeta.LastModified)
		}
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return result, fmt.Errorf("download: fetch: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	stamp := now().UTC()
	safeURL := RedactURL(rawURL)
	if resp.StatusCode == http.StatusNotModified {
		result.Status = StatusNotModified
		result.Meta = mergeMetadata(prevMeta, safeURL, resp, stamp, "")
		touch(dest, stamp)
		result.ModTime = stamp
		writeMetadataLogged(metaPath, result.Meta)
		return result, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return result, fmt.Errorf("download: fetch %s: status %s", safeURL, resp.Status)
	}

	if err := ensureParentDir(dest); err != nil {
		return result, err
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return result, fmt.Errorf("download: create temp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmpFile, hasher), resp.Body)
	if err != nil {
		tmpFile.Close()
		return result, fmt.Errorf("download: copy body: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return result, fmt.Errorf("download: finalize temp file: %w", err)
	}
	if written <= 0 {
		return result, errors.New("download: empty response body")
	}
	hashHex := hex.EncodeToString(hasher.Sum(nil))
	result.Bytes = written

	if !force && prevMeta != nil && prevMeta.SHA256 == hashHex {
		result.Status = StatusSameContent
		result.Meta = mergeMetadata(prevMeta, safeURL, resp, stamp, hashHex)
		touch(dest, stamp)
		result.ModTime = stamp
		writeMetadataLogged(metaPath, result.Meta)
		return result, nil
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return result, fmt.Errorf("download: replace file: %w", err)
	}
	result.Status = StatusUpdated
	meta := mergeMetadata(prevMeta, safeURL, resp, stamp, hashHex)
	meta.DownloadedAt = stamp
	meta.SizeBytes = written
	meta.ProcessedOK = false
	meta.ProcessedAt = time.Time{}
	result.Meta = meta
	if info, err := os.Stat(dest); err == nil {
		result.ModTime = info.ModTime()
	}
	writeMetadataLogged(metaPath, meta)
	return result, nil
}

// RedactURL replaces credential-looking query values with "REDACTED".
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	q := u.Query()
	changed := false
	for name := range q {
		for _, secret := range secretParams {
			if strings.EqualFold(name, secret) {
				q.Set(name, "REDACTED")
				changed = true
			}
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// redactURLError masks credentials in the URL that net/http and net/url
// embed in their errors, so the message is safe to print.
func redactURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = RedactURL(ue.URL)
	}
	return err
}

// ReadMetadata returns the first parseable metadata file among paths.
func ReadMetadata(paths ...string) (*Metadata, string) {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta Metadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		return &meta, path
	}
	return nil, ""
}

// WriteMetadata persists metadata as indented JSON.
func WriteMetadata(path string, meta Metadata) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("download: metadata path is empty")
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Purpose: Record whether a downloaded file could be parsed.
// Key aspects: Leaves the download fields intact; a missing sidecar is not an error.
// Upstream: refdata loaders after parsing.
// Downstream: ReadMetadata, WriteMetadata.
func UpdateProcessedStatus(metaPath string, ok bool) error {
	meta, _ := ReadMetadata(metaPath)
	if meta == nil {
		return nil
	}
	meta.ProcessedAt = time.Now().UTC()
	meta.ProcessedOK = ok
	return WriteMetadata(metaPath, *meta)
}

func mergeMetadata(prev *Metadata, safeURL string, resp *http.Response, now time.Time, hash string) Metadata {
	meta := Metadata{}
	if prev != nil {
		meta = *prev
	}
	meta.URL = safeURL
	meta.CheckedAt = now
	if resp != nil {
		if etag := strings.TrimSpace(resp.Header.Get("ETag")); etag != "" {
			meta.ETag = etag
		}
		if last := strings.TrimSpace(resp.Header.Get("Last-Modified")); last != "" {
			meta.LastModified = last
		}
	}
	if hash != "" {
		meta.SHA256 = hash
	}
	return meta
}

func writeMetadataLogged(path string, meta Metadata) {
	if err := WriteMetadata(path, meta); err != nil {
		log.Printf("Warning: unable to write metadata %s: %v", path, err)
	}
}

// touch restarts the refresh window of a file confirmed to be current.
func touch(path string, at time.Time) {
	if err := os.Chtimes(path, at, at); err != nil {
		log.Printf("Warning: unable to update mtime of %s: %v", path, err)
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("download: create directory: %w", err)
	}
	return nil
}
