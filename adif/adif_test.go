package adif

import (
	"testing"
)

func TestEncode(t *testing.T) {
	got := Encode([]Field{
		{Name: "station_callsign", Value: "N0CALL"},
		{Name: "CALL", Value: "DL6MHC"},
		{Name: "comment", Value: ""},
		{Name: "name", Value: "Jörg"},
	})
	want := "<station_callsign:6>N0CALL<call:6>DL6MHC<name:5>Jörg<eor>"
	if got != want {
		t.Fatalf("Encode=%q want %q", got, want)
	}
}

func TestDecodeSkipsHeader(t *testing.T) {
	text := "Generated by test\n<ADIF_VER:5>3.1.0<PROGRAMID:4>test<EOH>\n" +
		"<CALL:6>DL6MHC<BAND:3>20m<QSO_DATE:8>20240101<eor>\n" +
		"<call:5>K1ABC<band:3>40m<EOR>\n"
	records, err := DecodeString(text, "call", "band", "qso_date", "adif_ver")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %v", len(records), records)
	}
	if records[0].Get("CALL") != "DL6MHC" || records[0].Get("qso_date") != "20240101" {
		t.Fatalf("unexpected first record: %v", records[0])
	}
	if _, ok := records[0]["adif_ver"]; ok {
		t.Fatalf("header field leaked into record")
	}
	if records[1].Get("band") != "40m" {
		t.Fatalf("unexpected second record: %v", records[1])
	}
}

func TestDecodeKeepsOnlyNamedFields(t *testing.T) {
	encoded := Encode([]Field{{Name: "call", Value: "W1AW"}, {Name: "comment", Value: "QSL via bureau"}})
	records, err := DecodeString(encoded, "call")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Get("call") != "W1AW" {
		t.Fatalf("unexpected records: %v", records)
	}
	if _, ok := records[0]["comment"]; ok {
		t.Fatalf("unrequested field decoded: %v", records[0])
	}
}

func TestDecodeEmpty(t *testing.T) {
	records, err := DecodeString("", "call")
	if err != nil || len(records) != 0 {
		t.Fatalf("empty input: records=%v err=%v", records, err)
	}
}

func TestDecodeStringDropsTrailer(t *testing.T) {
	text := "<eoh>\n<CALL:6>DL6MHC<QSL_RCVD:1>Y<eor>\n<APP_LoTW_EOF>\n"
	records, err := DecodeString(text, "call", "qsl_rcvd")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Get("qsl_rcvd") != "Y" {
		t.Fatalf("unexpected records: %v", records)
	}
}
