// Package refdata keeps the locally cached reference datasets current: the
// DXCC prefix table, the LoTW user-activity list and, when credentials are
// configured, the LoTW confirmation report. Each dataset is refreshed at
// most once per TTL and failures never stop the caller; they are reported in
// the per-dataset Status instead.
package refdata

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qrzlogger/cty"
	"qrzlogger/download"
	"qrzlogger/lotw"
)

const (
	NamePrefixTable   = "prefix table"
	NameActivity      = "lotw activity"
	NameConfirmations = "lotw confirmations"

	ctyArchiveName = "bigcty.zip"
	activityName   = "lotw-user-activity.csv"
	reportName     = "lotwreport.adi"
)

// Extracted table names in order of preference.
var ctyMembers = []string{"cty.plist", "cty.csv"}

// Options configures a refresh run.
type Options struct {
	Dir         string
	TTL         time.Duration
	CTYURL      string
	ActivityURL string
	// ReportURL is the full authenticated report URL; empty skips the report.
	ReportURL string
	LoTWMode  string
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
}

// Status describes what happened to one dataset.
type Status struct {
	Name     string
	Path     string
	Download download.Status
	ModTime  time.Time
	Loaded   bool
	// Stale is set when a refresh failed and an outdated file was used.
	Stale   bool
	Entries int
	Err     error
}

// Data holds whatever datasets could be loaded; any field may be nil.
type Data struct {
	CTY           *cty.CTYDatabase
	Activity      *lotw.Activity
	Confirmations *lotw.Confirmations
	Status        []Status
}

// Purpose: Refresh and load every configured dataset, one after another.
// Key aspects: Never returns an error; a dataset that cannot be refreshed
// falls back to its previous file, and one that cannot be loaded stays nil.
// Upstream: main startup.
// Downstream: download.Download, cty.LoadCTYDatabase, lotw loaders.
func Refresh(ctx context.Context, opts Options) *Data {
	data := &Data{}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		log.Printf("[REFDATA] unable to create %s: %v", opts.Dir, err)
	}

	ctyStatus := refreshCTY(ctx, opts, data)
	data.Status = append(data.Status, ctyStatus)

	actStatus := fetch(ctx, opts, NameActivity, opts.ActivityURL, filepath.Join(opts.Dir, activityName))
	if actStatus.Path != "" {
		if act, err := lotw.LoadActivity(actStatus.Path); err != nil {
			actStatus.Err = joinErr(actStatus.Err, err)
			markProcessed(actStatus.Path, false)
		} else {
			data.Activity = act
			actStatus.Loaded = true
			actStatus.Entries = act.Count()
			markProcessed(actStatus.Path, true)
		}
	}
	data.Status = append(data.Status, actStatus)

	if strings.TrimSpace(opts.ReportURL) != "" {
		data.Status = append(data.Status, refreshReport(ctx, opts, data))
	}

	for _, st := range data.Status {
		logStatus(st)
	}
	return data
}

// Load reads the datasets already cached in dir without any download. The
// confirmation report is only read when lotwMode is set and not NONE.
func Load(dir, lotwMode string) *Data {
	data := &Data{}

	st := Status{Name: NamePrefixTable, Path: existingMember(dir)}
	if st.Path == "" {
		st.Err = errors.New("no prefix table available")
	} else if db, err := cty.LoadCTYDatabase(st.Path); err != nil {
		st.Err = err
	} else {
		data.CTY = db
		st.Loaded = true
		st.Entries = len(db.Keys)
	}
	data.Status = append(data.Status, withModTime(st))

	st = Status{Name: NameActivity, Path: filepath.Join(dir, activityName)}
	if act, err := lotw.LoadActivity(st.Path); err != nil {
		st.Err = err
	} else {
		data.Activity = act
		st.Loaded = true
		st.Entries = act.Count()
	}
	data.Status = append(data.Status, withModTime(st))

	if lotwMode != "" && lotwMode != "NONE" {
		st = Status{Name: NameConfirmations, Path: filepath.Join(dir, reportName)}
		if conf, err := lotw.LoadConfirmations(st.Path, lotwMode); err != nil {
			st.Err = err
		} else {
			data.Confirmations = conf
			st.Loaded = true
			st.Entries = conf.Entities()
		}
		data.Status = append(data.Status, withModTime(st))
	}
	return data
}

func withModTime(st Status) Status {
	if st.Path == "" {
		return st
	}
	if info, err := os.Stat(st.Path); err == nil {
		st.ModTime = info.ModTime()
	}
	return st
}

func refreshCTY(ctx context.Context, opts Options, data *Data) Status {
	archive := filepath.Join(opts.Dir, ctyArchiveName)
	st := fetch(ctx, opts, NamePrefixTable, opts.CTYURL, archive)

	tablePath := existingMember(opts.Dir)
	if st.Path != "" && (st.Download == download.StatusUpdated || tablePath == "") {
		extracted, err := extractCTY(archive, opts.Dir)
		if err != nil {
			st.Err = joinErr(st.Err, err)
			if tablePath != "" {
				st.Stale = true
			}
		} else {
			tablePath = extracted
		}
	}
	if tablePath == "" {
		if st.Err == nil {
			st.Err = errors.New("no prefix table available")
		}
		return st
	}
	st.Path = tablePath
	db, err := cty.LoadCTYDatabase(tablePath)
	if err != nil {
		st.Err = joinErr(st.Err, err)
		markProcessed(archive, false)
		return st
	}
	markProcessed(archive, true)
	data.CTY = db
	st.Loaded = true
	st.Stale = st.Err != nil
	st.Entries = len(db.Keys)
	return st
}

func refreshReport(ctx context.Context, opts Options, data *Data) Status {
	dest := filepath.Join(opts.Dir, reportName)
	st := fetch(ctx, opts, NameConfirmations, opts.ReportURL, dest)
	if st.Path == "" {
		return st
	}
	conf, err := lotw.LoadConfirmations(dest, opts.LoTWMode)
	if err != nil {
		st.Err = joinErr(st.Err, err)
		// A rejected login is saved as an HTML page; drop it so the next
		// start asks again instead of trusting it for a whole TTL.
		if st.Download == download.StatusUpdated {
			_ = os.Remove(dest)
			_ = os.Remove(download.MetadataPath(dest))
		}
		return st
	}
	data.Confirmations = conf
	st.Loaded = true
	st.Entries = conf.Entities()
	markProcessed(dest, true)
	return st
}

// fetch refreshes one file. Path is set when a usable file exists afterwards.
func fetch(ctx context.Context, opts Options, name, url, dest string) Status {
	st := Status{Name: name}
	if strings.TrimSpace(url) == "" {
		st.Err = errors.New("no URL configured")
		if info, err := os.Stat(dest); err == nil {
			st.Path = dest
			st.ModTime = info.ModTime()
			st.Stale = true
		}
		return st
	}
	res, err := download.Download(ctx, download.Request{
		URL:         url,
		Destination: dest,
		MaxAge:      opts.TTL,
		Timeout:     opts.Timeout,
		UserAgent:   opts.UserAgent,
		Client:      opts.Client,
	})
	if err != nil {
		st.Err = err
		if info, statErr := os.Stat(dest); statErr == nil {
			st.Path = dest
			st.ModTime = info.ModTime()
			st.Stale = true
		}
		return st
	}
	st.Path = dest
	st.Download = res.Status
	st.ModTime = res.ModTime
	return st
}

func existingMember(dir string) string {
	for _, name := range ctyMembers {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Purpose: Pull the prefix table out of bigcty.zip.
// Key aspects: Prefers cty.plist, falls back to cty.csv; writes via temp file
// and rename so a broken archive never truncates the previous table.
// Upstream: refreshCTY.
// Downstream: zip reader, extractFile.
func extractCTY(archivePath, dir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("cty: open zip: %w", err)
	}
	defer r.Close()

	members := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		members[strings.ToLower(filepath.Base(f.Name))] = f
	}
	for _, name := range ctyMembers {
		f, ok := members[name]
		if !ok {
			continue
		}
		dest := filepath.Join(dir, name)
		if err := extractFile(f, dest); err != nil {
			return "", err
		}
		return dest, nil
	}
	return "", fmt.Errorf("cty: archive has neither %s", strings.Join(ctyMembers, " nor "))
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("cty: open %s: %w", f.Name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "extract-*.tmp")
	if err != nil {
		return fmt.Errorf("cty: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return fmt.Errorf("cty: copy %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cty: finalize %s: %w", dest, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("cty: replace %s: %w", dest, err)
	}
	return nil
}

func markProcessed(path string, ok bool) {
	if err := download.UpdateProcessedStatus(download.MetadataPath(path), ok); err != nil {
		log.Printf("Warning: unable to update metadata for %s: %v", path, err)
	}
}

func joinErr(prev, next error) error {
	if prev == nil {
		return next
	}
	return errors.Join(prev, next)
}

func logStatus(st Status) {
	switch {
	case st.Loaded && st.Err == nil:
		log.Printf("[REFDATA] %s: %s, %d entries (%s)", st.Name, st.Download, st.Entries, st.Path)
	case st.Loaded:
		log.Printf("[REFDATA] %s: using stale copy %s: %v", st.Name, st.Path, st.Err)
	default:
		log.Printf("[REFDATA] %s: unavailable: %v", st.Name, st.Err)
	}
}
