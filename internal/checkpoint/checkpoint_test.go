package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-job-scraper-go/internal/models"
)

func sampleState() *State {
	st := NewState(models.RegionUS)
	st.KeywordIndex = 1
	st.LocationIndex = 4
	st.PlatformIndex = 1
	st.LastUpdate = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	st.AccumulatedRaw = []models.RawPosting{
		{Site: models.PlatformLinkedIn, Title: "AI Engineer", Company: "Acme", Location: "Remote"},
		{Site: models.PlatformAdzuna, Title: "ML Engineer", Company: "Beta", Location: "NYC"},
	}
	st.Seen(models.PlatformLinkedIn).Add(models.IntraKey("AI Engineer", "Acme", "Remote"))
	st.Seen(models.PlatformAdzuna).Add(models.IntraKey("ML Engineer", "Beta", "NYC"))
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	st := sampleState()

	require.NoError(t, store.Save(models.RegionUS, st))
	got := store.Load(models.RegionUS)

	require.NotNil(t, got)
	assert.Equal(t, 1, got.KeywordIndex)
	assert.Equal(t, 4, got.LocationIndex)
	assert.Equal(t, 1, got.PlatformIndex)
	assert.Equal(t, st.AccumulatedRaw, got.AccumulatedRaw)
	assert.True(t, got.Seen(models.PlatformLinkedIn).Contains("ai engineer|||acme|||remote"))
	assert.True(t, got.Seen(models.PlatformAdzuna).Contains("ml engineer|||beta|||nyc"))
	assert.Equal(t, 2, got.SeenCount())
	assert.True(t, got.LastUpdate.Equal(st.LastUpdate))
	assert.False(t, got.Completed)
}

func TestLayoutUnderRunAndRegionSlug(t *testing.T) {
	out := t.TempDir()
	store := NewStore(out, "run-1", nil)

	require.NoError(t, store.Save(models.RegionUK, NewState(models.RegionUK)))

	assert.FileExists(t, filepath.Join(out, "run-1", "united_kingdom", "checkpoint.json"))
	assert.FileExists(t, filepath.Join(out, "run-1", "united_kingdom", "raw_data_1.json"))
	assert.NoFileExists(t, filepath.Join(out, "run-1", "united_kingdom", "checkpoint.json.tmp"))
}

func TestLoadAbsent(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	assert.Nil(t, store.Load(models.RegionSG))
}

func TestLoadCorrupt(t *testing.T) {
	out := t.TempDir()
	store := NewStore(out, "run-1", nil)
	dir := store.RegionDir(models.RegionAU)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint.json"), []byte(`{"keyword_index": 2,`), 0644))

	assert.Nil(t, store.Load(models.RegionAU))
}

func TestLoadTornPairIsCorrupt(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	require.NoError(t, store.Save(models.RegionUS, sampleState()))

	// the referenced raw file no longer matches the recorded count
	data := `[{"site":"linkedin","title":"x","company":"y","location":"","job_url":""}]`
	require.NoError(t, os.WriteFile(filepath.Join(store.RegionDir(models.RegionUS), "raw_data_1.json"), []byte(data), 0644))

	assert.Nil(t, store.Load(models.RegionUS))
}

func TestCrashBetweenWritesKeepsPreviousPair(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	dir := store.RegionDir(models.RegionUS)
	require.NoError(t, store.Save(models.RegionUS, sampleState()))

	// a later save wrote its raw file and died before replacing checkpoint.json
	orphan := `[{"site":"linkedin","title":"x","company":"y","location":"","job_url":""}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw_data_2.json"), []byte(orphan), 0644))

	got := store.Load(models.RegionUS)
	require.NotNil(t, got)
	assert.Equal(t, sampleState().AccumulatedRaw, got.AccumulatedRaw)
	assert.Equal(t, 2, got.SeenCount())

	// the next save skips past the orphan and cleans up
	require.NoError(t, store.Save(models.RegionUS, got))
	assert.FileExists(t, filepath.Join(dir, "raw_data_3.json"))
	assert.NoFileExists(t, filepath.Join(dir, "raw_data_1.json"))
	assert.NoFileExists(t, filepath.Join(dir, "raw_data_2.json"))
	require.NotNil(t, store.Load(models.RegionUS))
}

func TestSaveReplacesLegacyRawFile(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	dir := store.RegionDir(models.RegionUS)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw_data.json"), []byte(`[]`), 0644))

	require.NoError(t, store.Save(models.RegionUS, sampleState()))

	assert.NoFileExists(t, filepath.Join(dir, "raw_data.json"))
	got := store.Load(models.RegionUS)
	require.NotNil(t, got)
	assert.Len(t, got.AccumulatedRaw, 2)
}

func TestLoadMigratesLegacySeenKeys(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	dir := store.RegionDir(models.RegionUS)
	require.NoError(t, os.MkdirAll(dir, 0755))

	legacy := `{"region":"US","keyword_index":0,"location_index":3,"seen_keys":["https://example.com/jobs/1","https://example.com/jobs/2"],"last_update_ts":1700000000.5}`
	raw := `[{"title":"AI Engineer","company":"Acme","location":"Remote","job_url":"https://example.com/jobs/1"},
		{"title":"Data Scientist","company":"nan","location":"Remote","job_url":"https://example.com/jobs/2"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint.json"), []byte(legacy), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw_data.json"), []byte(raw), 0644))

	got := store.Load(models.RegionUS)

	require.NotNil(t, got)
	assert.Equal(t, 3, got.LocationIndex)
	assert.Equal(t, 1, got.SeenCount())
	assert.True(t, got.Seen(LegacyPlatform).Contains("ai engineer|||acme|||remote"))
	assert.Equal(t, LegacyPlatform, got.AccumulatedRaw[0].Site)
}

func TestClearIfRunChanged(t *testing.T) {
	out := t.TempDir()

	first := NewStore(out, "run-1", nil)
	require.NoError(t, first.ClearIfRunChanged("run-1"))
	require.NoError(t, first.Save(models.RegionUS, sampleState()))
	require.NoError(t, os.WriteFile(filepath.Join(first.RegionDir(models.RegionUS), "ai_jobs_united_states.xlsx"), []byte("x"), 0644))

	// same run id keeps the checkpoint
	again := NewStore(out, "run-1", nil)
	require.NoError(t, again.ClearIfRunChanged("run-1"))
	assert.NotNil(t, again.Load(models.RegionUS))

	second := NewStore(out, "run-2", nil)
	require.NoError(t, second.ClearIfRunChanged("run-2"))
	assert.Nil(t, second.Load(models.RegionUS))
	assert.Nil(t, first.Load(models.RegionUS))
	assert.NoFileExists(t, filepath.Join(first.RegionDir(models.RegionUS), "raw_data_1.json"))
	assert.FileExists(t, filepath.Join(first.RegionDir(models.RegionUS), "ai_jobs_united_states.xlsx"))

	marker, err := os.ReadFile(filepath.Join(out, ".last_run_id"))
	require.NoError(t, err)
	assert.Equal(t, "run-2\n", string(marker))
}

func TestClearRemovesStaleCurrentRunDir(t *testing.T) {
	out := t.TempDir()
	store := NewStore(out, "run-9", nil)
	require.NoError(t, store.Save(models.RegionHK, sampleState()))

	require.NoError(t, store.ClearIfRunChanged("run-9"))

	assert.Nil(t, store.Load(models.RegionHK))
}

func TestCompletedFlagPersists(t *testing.T) {
	store := NewStore(t.TempDir(), "run-1", nil)
	st := sampleState()
	st.Completed = true

	require.NoError(t, store.Save(models.RegionUS, st))

	got := store.Load(models.RegionUS)
	require.NotNil(t, got)
	assert.True(t, got.Completed)
}
