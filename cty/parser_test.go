package cty

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const samplePLIST = `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0">
<dict>
<key>K1ABC</key>
	<dict>
		<key>Country</key>
		<string>Alpha</string>
		<key>Prefix</key>
		<string>K1ABC</string>
		<key>ExactCallsign</key>
		<true/>
	</dict>
<key>K1</key>
	<dict>
		<key>Country</key>
		<string>Alpha</string>
		<key>Prefix</key>
		<string>K1</string>
		<key>ExactCallsign</key>
		<false/>
	</dict>
<key>XM3</key>
	<dict>
		<key>Country</key>
		<string>Zed</string>
		<key>Prefix</key>
		<string>XM3</string>
		<key>ExactCallsign</key>
		<false/>
	</dict>
<key>W6</key>
	<dict>
		<key>Country</key>
		<string>Delta</string>
		<key>Prefix</key>
		<string>W6</string>
		<key>ExactCallsign</key>
		<false/>
	</dict>
<key>FO/</key>
	<dict>
		<key>Country</key>
		<string>Slashland</string>
		<key>Prefix</key>
		<string>FO/</string>
		<key>ExactCallsign</key>
		<false/>
	</dict>
</dict>
</plist>`

func loadSampleDatabase(t *testing.T) *CTYDatabase {
	t.Helper()
	db, err := LoadCTYDatabaseFromReader(strings.NewReader(samplePLIST))
	if err != nil {
		t.Fatalf("load sample database: %v", err)
	}
	return db
}

func TestLookupExactCallsign(t *testing.T) {
	db := loadSampleDatabase(t)
	info, ok := db.LookupCallsign("K1ABC")
	if !ok {
		t.Fatalf("expected K1ABC to resolve")
	}
	if info.Country != "Alpha" || info.Prefix != "K1ABC" {
		t.Fatalf("unexpected entry: %+v", info)
	}
}

func TestExactCallIsNotAPrefix(t *testing.T) {
	db := loadSampleDatabase(t)
	info, ok := db.LookupCallsign("K1ABCD")
	if !ok {
		t.Fatalf("expected K1ABCD to resolve")
	}
	if info.Prefix != "K1" {
		t.Fatalf("exact call K1ABC must not match K1ABCD, got %q", info.Prefix)
	}
}

func TestLookupLongestPrefix(t *testing.T) {
	db := loadSampleDatabase(t)
	info, ok := db.LookupCallsign("k1xyz")
	if !ok {
		t.Fatalf("expected prefix match for K1XYZ")
	}
	if info.Prefix != "K1" {
		t.Fatalf("expected prefix K1, got %q", info.Prefix)
	}
	if info, ok = db.LookupCallsign("XM3A"); !ok || info.Country != "Zed" {
		t.Fatalf("expected Zed for XM3A, got %+v", info)
	}
}

func TestLookupStripsModifiers(t *testing.T) {
	db := loadSampleDatabase(t)
	for _, call := range []string{"K1ABC/M", "K1ABC/P", "K1ABC/QRP", "K1ABC/B", "K1ABC/MM"} {
		info, ok := db.LookupCallsign(call)
		if !ok || info.Prefix != "K1ABC" {
			t.Fatalf("%s: expected exact K1ABC, got %+v", call, info)
		}
	}
}

func TestLookupPortablePrefix(t *testing.T) {
	db := loadSampleDatabase(t)
	tests := []struct {
		call string
		want string
	}{
		{call: "W6/UT5UF", want: "W6"},
		{call: "K1ABC/W6", want: "W6"},
		{call: "W6/K1ABC/P", want: "W6"},
		{call: "FO/ABC", want: "FO/"},
		{call: "W1AW/6", want: "W6"},
	}
	for _, tt := range tests {
		info, ok := db.LookupCallsign(tt.call)
		if !ok {
			t.Fatalf("%s: expected match", tt.call)
		}
		if info.Prefix != tt.want {
			t.Fatalf("%s: expected %s, got %s", tt.call, tt.want, info.Prefix)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	db := loadSampleDatabase(t)
	if _, ok := db.LookupCallsign("ZZ9ZZA"); ok {
		t.Fatalf("expected ZZ9ZZA to miss")
	}
	if _, ok := db.LookupCallsign("  "); ok {
		t.Fatalf("expected blank input to miss")
	}
	var nilDB *CTYDatabase
	if _, ok := nilDB.LookupCallsign("K1ABC"); ok {
		t.Fatalf("nil database must miss")
	}
}

func TestLoadCTYDatabaseByExtension(t *testing.T) {
	dir := t.TempDir()
	plistPath := filepath.Join(dir, "cty.plist")
	if err := os.WriteFile(plistPath, []byte(samplePLIST), 0o644); err != nil {
		t.Fatalf("write plist: %v", err)
	}
	csvPath := filepath.Join(dir, "cty.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if db, err := LoadCTYDatabase(plistPath); err != nil || len(db.Keys) != 5 {
		t.Fatalf("plist load: err=%v", err)
	}
	db, err := LoadCTYDatabase(csvPath)
	if err != nil {
		t.Fatalf("csv load: %v", err)
	}
	if _, ok := db.LookupCallsign("DL6MHC"); !ok {
		t.Fatalf("expected DL6MHC to resolve from csv")
	}
}
