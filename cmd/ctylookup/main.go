// Command ctylookup resolves callsigns against the reference datasets that
// qrzlogger has already cached: the DXCC prefix table, the LoTW activity list
// and, when configured, the LoTW confirmation report. It never downloads.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"qrzlogger/callsign"
	"qrzlogger/config"
	"qrzlogger/refdata"

	"github.com/dustin/go-humanize"
)

func main() {
	dataDir := flag.String("data", "", "cache directory (default: files.data_dir from the qrzlogger config)")
	lotwMode := flag.String("lotw-mode", "", "LoTW mode filter for the confirmation report (default: lotw.lotw_mode from the config)")
	flag.Parse()

	dir, mode, err := resolveDirs(*dataDir, *lotwMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	data := refdata.Load(dir, mode)
	for _, st := range data.Status {
		if st.Loaded {
			fmt.Printf("%s: %s entries from %s\n", st.Name, humanize.Comma(int64(st.Entries)), st.Path)
		} else {
			fmt.Printf("%s: unavailable: %v\n", st.Name, st.Err)
		}
	}
	if data.CTY == nil {
		fmt.Fprintln(os.Stderr, "no prefix table cached; start qrzlogger once to download it")
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		for _, call := range flag.Args() {
			describe(os.Stdout, data, call, time.Now())
		}
		return
	}

	fmt.Println("enter callsigns (Ctrl+D to quit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		call := strings.TrimSpace(scanner.Text())
		if call == "" {
			continue
		}
		describe(os.Stdout, data, call, time.Now())
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "input error: %v\n", err)
	}
}

// resolveDirs fills unset flags from the qrzlogger config file. A missing
// config is fine when -data is given.
func resolveDirs(dataDir, lotwMode string) (string, string, error) {
	if dataDir != "" {
		return dataDir, strings.ToUpper(lotwMode), nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", "", fmt.Errorf("%w (or pass -data)", err)
	}
	if lotwMode == "" {
		lotwMode = cfg.LoTW.Mode
	}
	return cfg.Files.DataDir, strings.ToUpper(lotwMode), nil
}

func describe(w io.Writer, data *refdata.Data, raw string, now time.Time) {
	call := callsign.Normalize(raw)
	info, ok := data.CTY.LookupCallsign(call)
	if !ok {
		fmt.Fprintf(w, "%s: no matching prefix\n", call)
		return
	}
	a := data.Annotate(call)
	fmt.Fprintf(w, "%s -> %s (DXCC %d, prefix %s), %s, CQ %d, ITU %d, lat=%.2f lon=%.2f\n",
		call, info.Country, info.ADIF, info.Prefix, info.Continent, info.CQZone, info.ITUZone,
		info.Latitude, -info.Longitude)
	switch {
	case !a.LoTWKnown:
	case a.LoTWUser:
		fmt.Fprintf(w, "  LoTW: last upload %s\n", humanize.RelTime(a.LoTWLastUpload, now, "ago", "from now"))
		if a.LoTWStale(now) {
			fmt.Fprintln(w, "  LoTW: no upload in over a year")
		}
	default:
		fmt.Fprintln(w, "  LoTW: not a user")
	}
	if a.ConfirmationsKnown {
		if a.Confirmed {
			fmt.Fprintln(w, "  entity confirmed on LoTW")
		} else {
			fmt.Fprintln(w, "  entity not yet confirmed on LoTW")
		}
	}
}
