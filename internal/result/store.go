package result

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Store persists crack results to a JSON file, keeping at most one result per
// BSSID: re-cracking a network replaces its previous entry.
type Store struct {
	mu      sync.RWMutex
	path    string
	order   []string // BSSIDs in insertion order
	byBSSID map[string]*CrackResult
	anon    []*CrackResult // results without a BSSID (direct hex input)
}

func NewStore(path string) *Store {
	s := &Store{
		path:    path,
		byBSSID: make(map[string]*CrackResult),
	}
	s.load()
	return s
}

// Add records a result and writes the store back to disk. A result for an
// already-known BSSID replaces the earlier one.
func (s *Store) Add(r *CrackResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.BSSID == "" {
		s.anon = append(s.anon, r)
	} else {
		if _, known := s.byBSSID[r.BSSID]; !known {
			s.order = append(s.order, r.BSSID)
		}
		s.byBSSID[r.BSSID] = r
	}
	s.save()
}

// All returns every stored result in insertion order.
func (s *Store) All() []*CrackResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Cracked returns only results with recovered passphrases.
func (s *Store) Cracked() []*CrackResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cracked []*CrackResult
	for _, r := range s.snapshot() {
		if r.Cracked() {
			cracked = append(cracked, r)
		}
	}
	return cracked
}

// FindByBSSID looks up the result for one network, or nil.
func (s *Store) FindByBSSID(bssid string) *CrackResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byBSSID[bssid]
}

// Count returns the number of stored results.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byBSSID) + len(s.anon)
}

// FormatCracked renders the recovered networks as a table.
func (s *Store) FormatCracked() string {
	cracked := s.Cracked()
	if len(cracked) == 0 {
		return "No cracked networks.\n"
	}

	const row = "  %-24s %-19s %-20s %-13s %v\n"
	out := fmt.Sprintf(row, "ESSID", "BSSID", "KEY", "FRAME", "TESTED")
	out += fmt.Sprintf(row, "─────", "─────", "───", "─────", "──────")
	for _, r := range cracked {
		out += fmt.Sprintf(row, clip(r.ESSID, 22), r.BSSID, clip(r.Password, 18), r.FrameSource, r.Tested)
	}
	return out
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max] + ".."
	}
	return s
}

// snapshot flattens the store into insertion order; callers hold the lock.
func (s *Store) snapshot() []*CrackResult {
	out := make([]*CrackResult, 0, len(s.order)+len(s.anon))
	for _, bssid := range s.order {
		out = append(out, s.byBSSID[bssid])
	}
	return append(out, s.anon...)
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var results []*CrackResult
	if err := json.Unmarshal(data, &results); err != nil {
		return
	}
	for _, r := range results {
		if r.BSSID == "" {
			s.anon = append(s.anon, r)
			continue
		}
		if _, known := s.byBSSID[r.BSSID]; !known {
			s.order = append(s.order, r.BSSID)
		}
		s.byBSSID[r.BSSID] = r
	}
}

func (s *Store) save() {
	data, err := json.MarshalIndent(s.snapshot(), "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o644)
}
