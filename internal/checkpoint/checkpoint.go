// Package checkpoint persists per-region crawl progress so an interrupted
// run can resume where it stopped.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"ai-job-scraper-go/internal/models"
)

const (
	checkpointFile = "checkpoint.json"
	markerFile     = ".last_run_id"

	// rawDataFile is the unsequenced name older checkpoints point at
	// implicitly; new saves write raw_data_<seq>.json.
	rawDataFile   = "raw_data.json"
	rawDataPrefix = "raw_data_"
	rawDataGlob   = "raw_data*.json"
)

// LegacyPlatform owns raw postings saved before postings were tagged with
// their site. Only the business-network board was crawled back then.
const LegacyPlatform = models.PlatformLinkedIn

// State is the resumable progress of one region's grid walk. The index
// triple names the next (keyword, location, platform) to scrape.
type State struct {
	Region         models.Region
	KeywordIndex   int
	LocationIndex  int
	PlatformIndex  int
	SeenKeys       map[models.Platform]mapset.Set[string]
	AccumulatedRaw []models.RawPosting
	LastUpdate     time.Time
	Completed      bool
}

// NewState returns an empty state for region.
func NewState(region models.Region) *State {
	return &State{
		Region:   region,
		SeenKeys: make(map[models.Platform]mapset.Set[string]),
	}
}

// Seen returns the key set for platform, creating it if needed.
func (s *State) Seen(p models.Platform) mapset.Set[string] {
	if s.SeenKeys == nil {
		s.SeenKeys = make(map[models.Platform]mapset.Set[string])
	}
	set, ok := s.SeenKeys[p]
	if !ok {
		set = mapset.NewThreadUnsafeSet[string]()
		s.SeenKeys[p] = set
	}
	return set
}

// SeenCount is the number of keys across all platforms.
func (s *State) SeenCount() int {
	n := 0
	for _, set := range s.SeenKeys {
		n += set.Cardinality()
	}
	return n
}

// fileState is the on-disk form of checkpoint.json. SeenKeys is either a
// platform→keys object or, in legacy files, a flat array of URLs.
type fileState struct {
	Region        models.Region   `json:"region"`
	KeywordIndex  int             `json:"keyword_index"`
	LocationIndex int             `json:"location_index"`
	PlatformIndex int             `json:"platform_index"`
	SeenKeys      json.RawMessage `json:"seen_keys"`
	RawFile       string          `json:"raw_file,omitempty"`
	RawCount      *int            `json:"raw_count,omitempty"`
	LastUpdateTS  float64         `json:"last_update_ts"`
	Completed     bool            `json:"completed"`
}

// Store reads and writes checkpoints under <output>/<run_id>/<region_slug>/.
type Store struct {
	outputDir string
	runID     string
	logger    *log.Logger

	migrationNoticed bool
}

// NewStore creates a store for one run.
func NewStore(outputDir, runID string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{outputDir: outputDir, runID: runID, logger: logger}
}

// RunDir is the directory holding every region of the current run.
func (s *Store) RunDir() string {
	return filepath.Join(s.outputDir, s.runID)
}

// RegionDir is where a region's checkpoint and spreadsheet live.
func (s *Store) RegionDir(region models.Region) string {
	return filepath.Join(s.RunDir(), regionSlug(region))
}

func regionSlug(region models.Region) string {
	if info, ok := models.LookupRegion(region); ok {
		return info.Slug
	}
	return strings.ToLower(string(region))
}

// Load returns the saved state of region, or nil when there is none or it
// cannot be read.
func (s *Store) Load(region models.Region) *State {
	dir := s.RegionDir(region)

	data, err := os.ReadFile(filepath.Join(dir, checkpointFile))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Printf("WARNING: cannot read checkpoint for %s: %v", region, err)
		}
		return nil
	}

	var fs fileState
	if err := json.Unmarshal(data, &fs); err != nil {
		s.logger.Printf("WARNING: corrupt checkpoint for %s, starting fresh: %v", region, err)
		return nil
	}

	rawName := fs.RawFile
	if rawName == "" {
		rawName = rawDataFile
	}
	if filepath.Base(rawName) != rawName {
		s.logger.Printf("WARNING: checkpoint for %s names raw data outside its directory, starting fresh", region)
		return nil
	}
	raw, err := readRaw(filepath.Join(dir, rawName))
	if err != nil {
		s.logger.Printf("WARNING: corrupt raw data for %s, starting fresh: %v", region, err)
		return nil
	}
	if fs.RawCount != nil && *fs.RawCount != len(raw) {
		s.logger.Printf("WARNING: checkpoint for %s expects %d raw postings but found %d, starting fresh",
			region, *fs.RawCount, len(raw))
		return nil
	}

	state := NewState(region)
	state.KeywordIndex = fs.KeywordIndex
	state.LocationIndex = fs.LocationIndex
	state.PlatformIndex = fs.PlatformIndex
	state.AccumulatedRaw = raw
	state.Completed = fs.Completed
	if fs.LastUpdateTS > 0 {
		sec := int64(fs.LastUpdateTS)
		state.LastUpdate = time.Unix(sec, int64((fs.LastUpdateTS-float64(sec))*1e9))
	}

	if err := s.loadSeenKeys(state, fs.SeenKeys); err != nil {
		s.logger.Printf("WARNING: corrupt seen keys for %s, starting fresh: %v", region, err)
		return nil
	}
	return state
}

func (s *Store) loadSeenKeys(state *State, data json.RawMessage) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var legacy []string
		if err := json.Unmarshal(data, &legacy); err != nil {
			return err
		}
		s.migrateLegacy(state, len(legacy))
		return nil
	}

	var byPlatform map[models.Platform][]string
	if err := json.Unmarshal(data, &byPlatform); err != nil {
		return err
	}
	for p, keys := range byPlatform {
		state.Seen(p).Append(keys...)
	}
	return nil
}

// migrateLegacy rebuilds seen keys from the accumulated postings using the
// title|company|location scheme instead of URLs.
func (s *Store) migrateLegacy(state *State, legacyCount int) {
	if !s.migrationNoticed {
		s.migrationNoticed = true
		s.logger.Printf("Migrating legacy URL-based checkpoint for %s (%d keys) to title/company/location keys",
			state.Region, legacyCount)
	}
	for i := range state.AccumulatedRaw {
		raw := &state.AccumulatedRaw[i]
		if raw.Site == "" {
			raw.Site = LegacyPlatform
		}
		rec, ok := models.FromRaw(*raw, raw.Site, state.Region)
		if !ok {
			continue
		}
		state.Seen(raw.Site).Add(rec.IntraKey())
	}
}

// Save writes state atomically. Raw postings go to a fresh sequence-numbered
// file first, then checkpoint.json is replaced to point at it, and only then
// are older raw files removed. A crash at any step leaves a readable pair.
func (s *Store) Save(region models.Region, state *State) error {
	dir := s.RegionDir(region)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	raw := state.AccumulatedRaw
	if raw == nil {
		raw = []models.RawPosting{}
	}
	rawData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal raw postings: %w", err)
	}
	seq, err := nextRawSeq(dir)
	if err != nil {
		return fmt.Errorf("save raw postings for %s: %w", region, err)
	}
	rawName := rawDataPrefix + strconv.Itoa(seq) + ".json"
	if err := writeAtomic(filepath.Join(dir, rawName), rawData); err != nil {
		return fmt.Errorf("save raw postings for %s: %w", region, err)
	}

	seen := make(map[models.Platform][]string, len(state.SeenKeys))
	for p, set := range state.SeenKeys {
		keys := set.ToSlice()
		sort.Strings(keys)
		seen[p] = keys
	}
	seenData, err := json.Marshal(seen)
	if err != nil {
		return fmt.Errorf("marshal seen keys: %w", err)
	}

	count := len(raw)
	fs := fileState{
		Region:        region,
		KeywordIndex:  state.KeywordIndex,
		LocationIndex: state.LocationIndex,
		PlatformIndex: state.PlatformIndex,
		SeenKeys:      seenData,
		RawFile:       rawName,
		RawCount:      &count,
		LastUpdateTS:  float64(state.LastUpdate.UnixNano()) / 1e9,
		Completed:     state.Completed,
	}
	data, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, checkpointFile), data); err != nil {
		return fmt.Errorf("save checkpoint for %s: %w", region, err)
	}

	if err := removeRawFiles(dir, rawName); err != nil {
		s.logger.Printf("WARNING: cannot remove old raw data for %s: %v", region, err)
	}
	return nil
}

// nextRawSeq is one past the highest sequence present in dir, orphans from
// an interrupted save included.
func nextRawSeq(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, rawDataGlob))
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), ".json")
		n, err := strconv.Atoi(strings.TrimPrefix(name, rawDataPrefix))
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

// removeRawFiles deletes every raw data file in dir except keep.
func removeRawFiles(dir, keep string) error {
	matches, err := filepath.Glob(filepath.Join(dir, rawDataGlob))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if filepath.Base(m) == keep {
			continue
		}
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ClearIfRunChanged deletes region checkpoints of the previous and current
// run when runID differs from the stored marker, then records runID.
func (s *Store) ClearIfRunChanged(runID string) error {
	markerPath := filepath.Join(s.outputDir, markerFile)

	previous := ""
	if data, err := os.ReadFile(markerPath); err == nil {
		previous = strings.TrimSpace(string(data))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read run marker: %w", err)
	}

	if previous == runID {
		return nil
	}

	dirs := []string{filepath.Join(s.outputDir, runID)}
	if previous != "" {
		dirs = append(dirs, filepath.Join(s.outputDir, previous))
	}
	removed := 0
	for _, runDir := range dirs {
		n, err := clearRunDir(runDir)
		if err != nil {
			return err
		}
		removed += n
	}
	if previous != "" {
		s.logger.Printf("Run id changed from %q to %q; cleared %d region checkpoints", previous, runID, removed)
	}

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeAtomic(markerPath, []byte(runID+"\n")); err != nil {
		return fmt.Errorf("write run marker: %w", err)
	}
	s.runID = runID
	return nil
}

func clearRunDir(runDir string) (int, error) {
	entries, err := os.ReadDir(runDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("list run directory: %w", err)
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		regionDir := filepath.Join(runDir, e.Name())
		err := os.Remove(filepath.Join(regionDir, checkpointFile))
		if err == nil {
			removed++
		} else if !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove checkpoint: %w", err)
		}
		if err := removeRawFiles(regionDir, ""); err != nil {
			return removed, fmt.Errorf("remove raw data: %w", err)
		}
	}
	return removed, nil
}

func readRaw(path string) ([]models.RawPosting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var raw []models.RawPosting
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
