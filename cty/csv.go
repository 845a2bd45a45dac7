package cty

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LoadCTYCSV decodes the cty.csv layout shipped in bigcty.zip:
//
//	prefix,country,dxcc,continent,cq,itu,lat,lon,gmt,alias alias =EXACT(cq)[itu];
//
// Alias tokens may carry (cq) [itu] <lat/lon> {continent} ~gmt~ overrides.
func LoadCTYCSV(r io.Reader) (*CTYDatabase, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	data := make(map[string]PrefixInfo)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("cty csv line %d: %w", line, err)
		}
		if len(record) < 10 {
			continue
		}
		base, err := parseCSVEntity(record)
		if err != nil {
			return nil, fmt.Errorf("cty csv line %d: %w", line, err)
		}
		data[base.Prefix] = base
		aliases := strings.TrimSuffix(strings.TrimSpace(record[9]), ";")
		for _, token := range strings.Fields(aliases) {
			key, info := applyAlias(base, token)
			if key == "" {
				continue
			}
			data[key] = info
		}
	}
	return newDatabase(data)
}

func parseCSVEntity(record []string) (PrefixInfo, error) {
	var info PrefixInfo
	info.Prefix = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(record[0]), "*"))
	info.Country = strings.TrimSpace(record[1])
	info.Continent = strings.ToUpper(strings.TrimSpace(record[3]))
	ints := []*int{&info.ADIF, &info.CQZone, &info.ITUZone}
	for i, idx := range []int{2, 4, 5} {
		v, err := strconv.Atoi(strings.TrimSpace(record[idx]))
		if err != nil {
			return info, fmt.Errorf("field %d: %w", idx+1, err)
		}
		*ints[i] = v
	}
	floats := []*float64{&info.Latitude, &info.Longitude, &info.GMTOffset}
	for i, idx := range []int{6, 7, 8} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return info, fmt.Errorf("field %d: %w", idx+1, err)
		}
		*floats[i] = v
	}
	if info.Prefix == "" {
		return info, errors.New("empty prefix")
	}
	return info, nil
}

// applyAlias derives the entry for one alias token from its entity.
func applyAlias(base PrefixInfo, token string) (string, PrefixInfo) {
	info := base
	token = strings.ToUpper(strings.TrimSpace(token))
	if strings.HasPrefix(token, "=") {
		info.ExactCallsign = true
		token = token[1:]
	}
	key := token
	if idx := strings.IndexAny(token, "([<{~"); idx >= 0 {
		key = token[:idx]
		overrides := token[idx:]
		if v, ok := between(overrides, '(', ')'); ok {
			if n, err := strconv.Atoi(v); err == nil {
				info.CQZone = n
			}
		}
		if v, ok := between(overrides, '[', ']'); ok {
			if n, err := strconv.Atoi(v); err == nil {
				info.ITUZone = n
			}
		}
		if v, ok := between(overrides, '{', '}'); ok {
			info.Continent = v
		}
		if v, ok := between(overrides, '<', '>'); ok {
			if lat, lon, found := strings.Cut(v, "/"); found {
				if f, err := strconv.ParseFloat(lat, 64); err == nil {
					info.Latitude = f
				}
				if f, err := strconv.ParseFloat(lon, 64); err == nil {
					info.Longitude = f
				}
			}
		}
		if v, ok := between(overrides, '~', '~'); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				info.GMTOffset = f
			}
		}
	}
	info.Prefix = key
	return key, info
}

func between(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}
	end := strings.IndexByte(s[start+1:], close)
	if end < 0 {
		return "", false
	}
	return s[start+1 : start+1+end], true
}
