package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestOpenFile_MissingFileIsEmpty(t *testing.T) {
	store, err := OpenFile(filepath.Join(t.TempDir(), "custom.toml"))

	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestOpenFile_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not valid TOML {{{[["), 0600))

	store, err := OpenFile(path)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "deepseek"))
	require.NoError(t, store.Set("ingest.chunk_size", 300))
	require.NoError(t, store.Set("retrieval.min_score", 0.25))
	require.NoError(t, store.Set("embedding.rps", 4))
	require.NoError(t, store.Set("watch", true))
	require.NoError(t, store.Set("exts", []string{"txt", "pdf"}))

	assert.Equal(t, "deepseek", store.GetString("llm.model"))
	assert.Equal(t, 300, store.GetInt("ingest.chunk_size"))
	assert.InDelta(t, 0.25, store.GetFloat("retrieval.min_score"), 1e-9)
	assert.InDelta(t, 4.0, store.GetFloat("embedding.rps"), 1e-9)
	assert.True(t, store.GetBool("watch"))
	assert.Equal(t, []string{"txt", "pdf"}, store.GetStringSlice("exts"))

	// Wrong types and missing keys fall back to zero values.
	assert.Equal(t, "", store.GetString("ingest.chunk_size"))
	assert.Equal(t, 0, store.GetInt("llm.model"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("llm.model"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_PersistsAsTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("ingest.chunk_size", 500))
	require.NoError(t, store.Set("ingest.chunk_overlap", 50))
	require.NoError(t, store.Set("paths.data_dir", "corpus"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[ingest]")
	assert.Contains(t, string(raw), "chunk_size = 500")
	assert.Contains(t, string(raw), "[paths]")

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 500, reloaded.GetInt("ingest.chunk_size"))
	assert.Equal(t, 50, reloaded.GetInt("ingest.chunk_overlap"))
	assert.Equal(t, "corpus", reloaded.GetString("paths.data_dir"))
	assert.Equal(t, []string{"ingest.chunk_overlap", "ingest.chunk_size", "paths.data_dir"}, reloaded.Keys())
}

func TestConfigStore_ReadsNestedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[llm]
provider = "anthropic"
model = "claude-x"

[server]
addr = ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := OpenFile(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
	assert.Equal(t, "claude-x", store.GetString("llm.model"))
	assert.Equal(t, ":9000", store.GetString("server.addr"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_SaveLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Set("n", i))
	}

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	val, ok := store.Get("any_key")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Set_WriteErrorRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	// Replace the file with a directory so the rename fails.
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	err = store.Set("another", "value")
	assert.Error(t, err)

	_, ok := store.Get("another")
	assert.False(t, ok)
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("channel", "before"))

	// Channels cannot be marshaled to TOML
	err = store.Set("channel", make(chan int))

	assert.Error(t, err)
	assert.Equal(t, "before", store.GetString("channel"))
}

func TestConfigStore_KeyConflict(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm", "scalar"))

	assert.Error(t, store.Set("llm.model", "x"))
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("valid", "data"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("invalid toml syntax ][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetInt(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}

func TestNestMap(t *testing.T) {
	nested, err := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
	}, nested)

	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flattenMap(nested, ""))
}
