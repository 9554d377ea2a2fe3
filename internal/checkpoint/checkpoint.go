// Package checkpoint persists scrape progress so interrupted runs can
// resume without re-fetching (or re-paying for) already processed
// businesses.
package checkpoint

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Stats holds the aggregate counters persisted alongside the processed
// ID set.
type Stats struct {
	StartTime       time.Time      `json:"start_time,omitzero"`
	LastCheckpoint  time.Time      `json:"last_checkpoint,omitzero"`
	TotalProcessed  int            `json:"total_processed"`
	TotalCost       float64        `json:"total_cost"`
	APICalls        map[string]int `json:"api_calls"`
	LeadsByCategory map[string]int `json:"leads_by_category"`
}

// fileFormat is the on-disk JSON layout. Internal to this system;
// Load degrades gracefully on unknown or missing keys.
type fileFormat struct {
	ProcessedPlaceIDs []string `json:"processed_place_ids"`
	Stats             Stats    `json:"stats"`
}

// Store is a durable, crash-resumable set of processed identifiers plus
// aggregate counters. Safe for concurrent use by multiple workers.
type Store struct {
	mu        sync.Mutex
	path      string
	processed map[string]struct{}
	stats     Stats
	log       *zap.Logger
}

// New creates an empty Store backed by the given file path. Call Load
// to restore a previous run or Clear to start fresh.
func New(path string) *Store {
	return &Store{
		path:      path,
		processed: make(map[string]struct{}),
		stats:     emptyStats(),
		log:       zap.L().With(zap.String("component", "checkpoint")),
	}
}

func emptyStats() Stats {
	return Stats{
		APICalls:        make(map[string]int),
		LeadsByCategory: make(map[string]int),
	}
}

// Load restores state from the checkpoint file. A missing file is not
// an error; a corrupt file is logged and ignored so a damaged
// checkpoint can never crash the process. Returns true when state was
// restored.
func (s *Store) Load() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read checkpoint", zap.String("path", s.path), zap.Error(err))
		}
		return false
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Warn("corrupt checkpoint ignored", zap.String("path", s.path), zap.Error(err))
		return false
	}

	s.processed = make(map[string]struct{}, len(f.ProcessedPlaceIDs))
	for _, id := range f.ProcessedPlaceIDs {
		s.processed[id] = struct{}{}
	}
	s.stats = f.Stats
	if s.stats.APICalls == nil {
		s.stats.APICalls = make(map[string]int)
	}
	if s.stats.LeadsByCategory == nil {
		s.stats.LeadsByCategory = make(map[string]int)
	}

	s.log.Info("checkpoint loaded",
		zap.Int("processed", len(s.processed)),
		zap.Float64("total_cost", s.stats.TotalCost),
		zap.Time("last_checkpoint", s.stats.LastCheckpoint),
	)
	return true
}

// Save writes the current state to disk via a temp file and an atomic
// rename, so a concurrent reader never observes a partially written
// checkpoint. Failures are logged and swallowed: a full disk must not
// abort the scrape, and the next successful save carries all
// accumulated mutations.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLocked(); err != nil {
		s.log.Warn("failed to save checkpoint", zap.String("path", s.path), zap.Error(err))
	}
}

func (s *Store) saveLocked() error {
	s.stats.LastCheckpoint = time.Now().UTC()

	ids := make([]string, 0, len(s.processed))
	for id := range s.processed {
		ids = append(ids, id)
	}

	data, err := json.MarshalIndent(fileFormat{ProcessedPlaceIDs: ids, Stats: s.stats}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return eris.Wrap(err, "checkpoint: rename")
	}
	return nil
}

// Clear deletes the persisted file and resets in-memory state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove checkpoint file", zap.String("path", s.path), zap.Error(err))
	}
	s.processed = make(map[string]struct{})
	s.stats = emptyStats()
}

// IsProcessed reports whether an identifier was already processed.
// Callers dispatch work only for unprocessed IDs; see MarkProcessed.
func (s *Store) IsProcessed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.processed[id]
	return ok
}

// MarkProcessed records an identifier as processed. Callers are
// expected to pre-check IsProcessed before starting work on an ID, but
// marking twice is harmless: the membership check here keeps
// total_processed from double-counting either way.
func (s *Store) MarkProcessed(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processed[id]; ok {
		return
	}
	s.processed[id] = struct{}{}
	s.stats.TotalProcessed++
}

// MarkStarted records the workflow start time once.
func (s *Store) MarkStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats.StartTime.IsZero() {
		s.stats.StartTime = time.Now().UTC()
	}
}

// UpdateCost adds to the running cost total.
func (s *Store) UpdateCost(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.TotalCost += amount
}

// UpdateAPICall increments the counter for a call type.
func (s *Store) UpdateAPICall(callType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.APICalls[callType]++
}

// UpdateCategoryCount increments the accepted-lead counter for a
// category.
func (s *Store) UpdateCategoryCount(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.LeadsByCategory[category]++
}

// Stats returns a copy of the current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.APICalls = make(map[string]int, len(s.stats.APICalls))
	for k, v := range s.stats.APICalls {
		out.APICalls[k] = v
	}
	out.LeadsByCategory = make(map[string]int, len(s.stats.LeadsByCategory))
	for k, v := range s.stats.LeadsByCategory {
		out.LeadsByCategory[k] = v
	}
	return out
}

// ProcessedCount returns the size of the processed-ID set.
func (s *Store) ProcessedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.processed)
}

// LeadsCollected sums the per-category counters. Used to seed the
// global lead cap when resuming, so --max-leads counts leads from the
// interrupted run too.
func (s *Store) LeadsCollected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.stats.LeadsByCategory {
		total += n
	}
	return total
}
