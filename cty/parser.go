// Package cty loads the country-files.com prefix table (cty.plist or cty.csv)
// and resolves callsigns, including portable forms such as DL/W1ABC/P, to a
// DXCC entity with continent, zones and coordinates.
package cty

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"howett.net/plist"
)

// PrefixInfo describes one table entry. Longitude and GMTOffset keep the
// source convention (positive west).
type PrefixInfo struct {
	Country       string  `plist:"Country"`
	Prefix        string  `plist:"Prefix"`
	ADIF          int     `plist:"ADIF"`
	CQZone        int     `plist:"CQZone"`
	ITUZone       int     `plist:"ITUZone"`
	Continent     string  `plist:"Continent"`
	Latitude      float64 `plist:"Latitude"`
	Longitude     float64 `plist:"Longitude"`
	GMTOffset     float64 `plist:"GMTOffset"`
	ExactCallsign bool    `plist:"ExactCallsign"`
}

// CTYDatabase holds the table keyed by prefix or exact call.
type CTYDatabase struct {
	Data map[string]PrefixInfo
	// Keys is sorted longest-first.
	Keys []string
	// trie holds prefix keys only; exact calls never match as a prefix of a
	// longer call.
	trie ctyTrie
}

// ctyTrie is a read-only byte trie used for longest-prefix matching: walk the
// callsign from the root and remember the last terminal node passed.
type ctyTrie struct {
	nodes []ctyTrieNode
}

type ctyTrieNode struct {
	next        map[byte]int
	terminalKey string
}

func buildCTYTrie(keys []string) ctyTrie {
	tr := ctyTrie{nodes: []ctyTrieNode{{next: make(map[byte]int)}}}
	for _, key := range keys {
		if key == "" {
			continue
		}
		state := 0
		for i := 0; i < len(key); i++ {
			next := tr.nodes[state].next
			if next == nil {
				next = make(map[byte]int)
				tr.nodes[state].next = next
			}
			child, ok := next[key[i]]
			if !ok {
				child = len(tr.nodes)
				tr.nodes = append(tr.nodes, ctyTrieNode{})
				next[key[i]] = child
			}
			state = child
		}
		tr.nodes[state].terminalKey = key
	}
	return tr
}

func (tr *ctyTrie) longestPrefixKey(cs string) (string, bool) {
	if tr == nil || len(tr.nodes) == 0 || cs == "" {
		return "", false
	}
	state := 0
	best := ""
	for i := 0; i < len(cs); i++ {
		child, ok := tr.nodes[state].next[cs[i]]
		if !ok {
			break
		}
		state = child
		if key := tr.nodes[state].terminalKey; key != "" {
			best = key
		}
	}
	return best, best != ""
}

// LoadCTYDatabase loads a prefix table, choosing the decoder by extension
// (.plist or .csv).
func LoadCTYDatabase(path string) (*CTYDatabase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cty table: %w", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCTYCSV(f)
	default:
		return LoadCTYDatabaseFromReader(f)
	}
}

// LoadCTYDatabaseFromReader decodes cty.plist content.
func LoadCTYDatabaseFromReader(r io.ReadSeeker) (*CTYDatabase, error) {
	var raw map[string]PrefixInfo
	if err := plist.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode plist: %w", err)
	}
	data := make(map[string]PrefixInfo, len(raw))
	for k, v := range raw {
		data[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return newDatabase(data)
}

func newDatabase(data map[string]PrefixInfo) (*CTYDatabase, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cty table is empty")
	}
	keys := make([]string, 0, len(data))
	prefixes := make([]string, 0, len(data))
	for k, v := range data {
		keys = append(keys, k)
		if !v.ExactCallsign {
			prefixes = append(prefixes, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) == len(keys[j]) {
			return keys[i] < keys[j]
		}
		return len(keys[i]) > len(keys[j])
	})
	return &CTYDatabase{
		Data: data,
		Keys: keys,
		trie: buildCTYTrie(prefixes),
	}, nil
}

// Operating modifiers that say nothing about the entity.
var modifiers = map[string]bool{
	"P": true, "M": true, "MM": true, "AM": true, "QRP": true, "B": true,
}

// normalizeCallsign uppercases and drops trailing operating modifiers.
func normalizeCallsign(cs string) string {
	cs = strings.ToUpper(strings.TrimSpace(cs))
	for {
		idx := strings.LastIndexByte(cs, '/')
		if idx < 0 || !modifiers[cs[idx+1:]] {
			return cs
		}
		cs = cs[:idx]
	}
}

// LookupCallsign resolves a callsign to its table entry. Exact calls win;
// otherwise a slash-bearing key (FO/, VP2E/...) is tried against the whole
// string, then the shorter half of an A/B call is treated as the prefix. A
// single-digit suffix (W1ABC/4) moves the call to that call area.
func (db *CTYDatabase) LookupCallsign(cs string) (*PrefixInfo, bool) {
	if db == nil {
		return nil, false
	}
	cs = normalizeCallsign(cs)
	if cs == "" {
		return nil, false
	}
	if info, ok := db.Data[cs]; ok && info.ExactCallsign {
		return clonePrefix(info), true
	}
	if !strings.Contains(cs, "/") {
		return db.longest(cs)
	}
	if key, ok := db.trie.longestPrefixKey(cs); ok && strings.Contains(key, "/") {
		return clonePrefix(db.Data[key]), true
	}

	parts := strings.Split(cs, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	left, right := parts[0], parts[1]
	switch {
	case left == "":
		return db.longest(right)
	case right == "":
		return db.longest(left)
	case len(right) == 1 && right[0] >= '0' && right[0] <= '9':
		return db.longest(callAreaPrefix(left, right[0]))
	case len(right) < len(left):
		return db.longest(right)
	default:
		return db.longest(left)
	}
}

func (db *CTYDatabase) longest(cs string) (*PrefixInfo, bool) {
	if info, ok := db.Data[cs]; ok && info.ExactCallsign {
		return clonePrefix(info), true
	}
	key, ok := db.trie.longestPrefixKey(cs)
	if !ok {
		return nil, false
	}
	return clonePrefix(db.Data[key]), true
}

// callAreaPrefix rewrites the call-area digit of call: W1ABC + 4 -> W4.
func callAreaPrefix(call string, area byte) string {
	for i := 1; i < len(call); i++ {
		if call[i] >= '0' && call[i] <= '9' {
			return call[:i] + string(area)
		}
	}
	return call
}

func clonePrefix(info PrefixInfo) *PrefixInfo {
	copy := info
	return &copy
}
