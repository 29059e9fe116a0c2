package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func TestCatalog(t *testing.T) {
	ms := Supported()
	require.Len(t, ms, 4)
	ids := map[string]bool{}
	for _, m := range ms {
		ids[m.ID] = true
		assert.NotEmpty(t, m.Weights.Name, m.ID)
		assert.NotEmpty(t, m.Projector.Name, m.ID)
		assert.Positive(t, m.Weights.Size+m.Projector.Size, m.ID)
	}
	assert.True(t, ids[DefaultModelID])

	n, err := TotalSize("qwen2.5-vl-7b-q4")
	require.NoError(t, err)
	assert.Equal(t, int64(6_800_000_000), n)

	_, err = Get("gpt-4o")
	assert.True(t, IsUnknownModel(err))
}

func TestSupportedReturnsCopy(t *testing.T) {
	ms := Supported()
	ms[0].ID = "changed"
	_, err := Get("smolvlm2-2.2b-q4")
	assert.NoError(t, err)
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		0:             "0 B",
		512:           "512 B",
		1536:          "1.5 KB",
		1_300_000_000: "1.21 GB",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBytes(in), "%d", in)
	}
}

func TestResolveAndVerify(t *testing.T) {
	dir := t.TempDir()
	inst, err := Resolve(dir, "smolvlm2-2.2b-q4")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "SmolVLM2-2.2B-Instruct-Q4_K_M.gguf"), inst.WeightsPath)
	assert.Len(t, Verify(inst), 2)

	touch(t, dir, "SmolVLM2-2.2B-Instruct-Q4_K_M.gguf", 10)
	inst, err = Resolve(dir, "smolvlm2-2.2b-q4")
	require.NoError(t, err)
	assert.Equal(t, []string{inst.ProjectorPath}, Verify(inst))
	assert.Equal(t, int64(10), inst.DiskUsage)

	_, err = Resolve(dir, "nope")
	assert.True(t, IsUnknownModel(err))
}

func TestLoadDirSharedProjector(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "llava-v1.5-7b-q4_k_m.gguf", 4)
	touch(t, dir, "llava-v1.5-7b-q8_0.gguf", 8)
	touch(t, dir, "mmproj-model-f16.gguf", 2)
	touch(t, dir, "Qwen2.5-VL-7B-Instruct-Q4_K_M.gguf", 1)
	touch(t, dir, "notes.txt", 1)

	got, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "llava-1.5-7b-q4", got[0].ModelID)
	assert.Equal(t, "llava-1.5-7b-q8", got[1].ModelID)
	assert.Equal(t, int64(10), got[1].DiskUsage)
	assert.False(t, got[0].InstalledAt.IsZero())

	got, err = LoadDir(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, got)
}
