// Package adif reads and writes Amateur Data Interchange Format text: the
// <name:length>value fields used by the QRZ logbook API and the LoTW report.
// Reading goes through github.com/jj1bdx/adifparser; the writer is a thin
// encoder for the single record an insert sends.
package adif

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jj1bdx/adifparser"
)

// Field is one named value in output order.
type Field struct {
	Name  string
	Value string
}

// Record maps lowercase field names to values.
type Record map[string]string

// Get returns the value of a field, case-insensitively.
func (r Record) Get(name string) string {
	return r[strings.ToLower(name)]
}

// Encode serializes fields as one record terminated by <eor>. Empty values
// are skipped.
func Encode(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" || f.Name == "" {
			continue
		}
		b.WriteString(EncodeField(f.Name, f.Value))
	}
	b.WriteString(eor)
	return b.String()
}

// EncodeField renders a single <name:len>value pair; the length counts
// bytes, as the reader does.
func EncodeField(name, value string) string {
	return "<" + strings.ToLower(name) + ":" + strconv.Itoa(len(value)) + ">" + value
}

// Decode reads every record of an ADIF document and keeps the named fields.
// The header, when present, is skipped by the reader. Records without any
// of the named fields are dropped.
func Decode(r io.Reader, names ...string) ([]Record, error) {
	reader := adifparser.NewADIFReader(r)
	var records []Record
	for {
		rec, err := reader.ReadRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("adif: record %d: %w", len(records)+1, err)
		}
		if rec == nil {
			break
		}
		out := make(Record, len(names))
		for _, name := range names {
			name = strings.ToLower(name)
			if v, err := rec.GetValue(name); err == nil && v != "" {
				out[name] = v
			}
		}
		if len(out) > 0 {
			records = append(records, out)
		}
	}
	return records, nil
}

// DecodeString is Decode over in-memory text. Trailing markers after the
// last <eor>, such as LoTW's <APP_LoTW_EOF>, are not handed to the reader.
func DecodeString(text string, names ...string) ([]Record, error) {
	if idx := lastEOR(text); idx >= 0 {
		text = text[:idx+len(eor)]
	}
	return Decode(strings.NewReader(text), names...)
}

const eor = "<eor>"

func lastEOR(text string) int {
	for i := len(text) - len(eor); i >= 0; i-- {
		if strings.EqualFold(text[i:i+len(eor)], eor) {
			return i
		}
	}
	return -1
}
