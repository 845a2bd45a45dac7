package ui

import (
	"os"
	"strings"

	"golang.org/x/term"
)

const resetANSI = "\x1b[0m"

var ansiCodes = map[string]string{
	"black":          "\x1b[30m",
	"red":            "\x1b[31m",
	"green":          "\x1b[32m",
	"yellow":         "\x1b[33m",
	"blue":           "\x1b[34m",
	"magenta":        "\x1b[35m",
	"cyan":           "\x1b[36m",
	"white":          "\x1b[37m",
	"grey":           "\x1b[90m",
	"bright_red":     "\x1b[91m",
	"bright_green":   "\x1b[92m",
	"bright_yellow":  "\x1b[93m",
	"bright_blue":    "\x1b[94m",
	"bright_magenta": "\x1b[95m",
	"bright_cyan":    "\x1b[96m",
	"bright_white":   "\x1b[97m",
	"bold":           "\x1b[1m",
	"underline":      "\x1b[4m",
}

var (
	ansiColorReplacer = buildReplacer(true)
	ansiStripReplacer = buildReplacer(false)
)

func buildReplacer(color bool) *strings.Replacer {
	pairs := make([]string, 0, 2*len(ansiCodes)+2)
	for name, code := range ansiCodes {
		if !color {
			code = ""
		}
		pairs = append(pairs, "["+name+"]", code)
	}
	if color {
		pairs = append(pairs, "[-]", resetANSI)
	} else {
		pairs = append(pairs, "[-]", "")
	}
	return strings.NewReplacer(pairs...)
}

// KnownColor reports whether name can be used in markup.
func KnownColor(name string) bool {
	_, ok := ansiCodes[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Purpose: Apply or strip [color] ... [-] markup tokens.
// Key aspects: Unknown bracketed text is left alone so callsigns or comments
// containing brackets survive; a trailing reset is added when colors are on.
// Upstream: Presenter output and prompt labels.
// Downstream: ansiColorReplacer, ansiStripReplacer.
func applyMarkup(line string, color bool) string {
	if line == "" {
		return line
	}
	if !color {
		return ansiStripReplacer.Replace(line)
	}
	out := ansiColorReplacer.Replace(line)
	if out != line {
		out += resetANSI
	}
	return out
}

// ColorEnabled reports whether colored output should be used on f: the
// config must allow it and f must be a terminal.
func ColorEnabled(configured bool, f *os.File) bool {
	if !configured || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
