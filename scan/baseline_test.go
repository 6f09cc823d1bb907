package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ncn914491/blockscan"
)

func TestIsNew(t *testing.T) {
	baseline := []blockscan.Finding{
		{Fingerprint: "file!file_content!path=a.kt!blocking-cache-copy!11111111#L1-1#C1-10"},
		{
			RuleID:    "thread-sleep-in-coroutine",
			StartLine: 7,
			EndLine:   7,
			Match:     "Thread.sleep(",
			Metadata:  map[string]string{blockscan.MetaPath: "Worker.kt"},
		},
	}

	known := blockscan.Finding{Fingerprint: "file!file_content!path=a.kt!blocking-cache-copy!11111111#L1-1#C1-10"}
	assert.False(t, IsNew(known, baseline))

	unknown := blockscan.Finding{Fingerprint: "file!file_content!path=b.kt!blocking-cache-copy!22222222#L1-1#C1-10"}
	assert.True(t, IsNew(unknown, baseline))

	// Field-by-field fallback for baselines without fingerprints.
	legacy := blockscan.Finding{
		RuleID:    "thread-sleep-in-coroutine",
		StartLine: 7,
		EndLine:   7,
		Match:     "Thread.sleep(",
		Metadata:  map[string]string{blockscan.MetaPath: "Worker.kt"},
	}
	assert.False(t, IsNew(legacy, baseline))

	legacy.StartLine = 8
	assert.True(t, IsNew(legacy, baseline))
}

func TestLoadBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
 {
  "RuleID": "blocking-cache-copy",
  "Description": "Synchronous cache copy inside the ACTION_VIEW/SEND intent handler",
  "Severity": "error",
  "StartLine": 42,
  "EndLine": 44,
  "StartColumn": 9,
  "EndColumn": 31,
  "Match": "Intent.ACTION_VIEW, Intent.ACTION_SEND -> { runBlocking { copyToCacheSynchronous",
  "Tags": ["coroutine", "blocking"],
  "Fingerprint": "file!file_content!path=ui/MainActivity.kt!blocking-cache-copy!a1b2c3d4#L42-44#C9-31",
  "Metadata": {"path": "ui/MainActivity.kt"}
 }
]`), 0o644))

	baseline, err := LoadBaseline(path)
	require.NoError(t, err)
	require.Len(t, baseline, 1)
	assert.Equal(t, "blocking-cache-copy", baseline[0].RuleID)
	assert.Equal(t, "ui/MainActivity.kt", baseline[0].Metadata[blockscan.MetaPath])
	// The synthetic fragment lets resource-based code keep working.
	require.NotNil(t, baseline[0].Fragment)
	assert.Equal(t, "ui/MainActivity.kt", baseline[0].Fragment.Path)
}

func TestLoadBaselineErrors(t *testing.T) {
	_, err := LoadBaseline(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadBaseline(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
