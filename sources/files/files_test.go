package files

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/fatih/semgroup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func collectPaths(t *testing.T, source *Files) []string {
	t.Helper()
	var (
		mu    sync.Mutex
		paths []string
	)
	err := source.Fragments(context.Background(), func(fragment blockscan.Fragment, err error) error {
		require.NoError(t, err)
		mu.Lock()
		rel, relErr := filepath.Rel(source.Path, fragment.Path)
		require.NoError(t, relErr)
		paths = append(paths, filepath.ToSlash(rel))
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths
}

func TestFragmentsWalk(t *testing.T) {
	cfg, err := config.LoadDefault()
	require.NoError(t, err)

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app/src/main/java/MainActivity.kt":     "runBlocking { copyToCacheSynchronous(uri) }\n",
		"app/src/main/java/worker/Sync.kt":      "launch { Thread.sleep(100) }\n",
		"app/build/generated/Stub.kt":           "generated, must not be scanned\n",
		"app/src/test/java/MainActivityTest.kt": "runBlocking { } // deliberate\n",
		"app/bundle.zip":                        "PK\x03\x04 pretend archive",
		"app/empty.kt":                          "",
	})

	ctx := context.Background()
	source := &Files{
		Config:      &cfg,
		MaxFileSize: 10_000_000,
		Path:        root,
		Sema:        semgroup.NewGroup(ctx, 4),
	}

	paths := collectPaths(t, source)
	assert.Equal(t, []string{
		"app/src/main/java/MainActivity.kt",
		"app/src/main/java/worker/Sync.kt",
	}, paths)
}

func TestFragmentsSymlinks(t *testing.T) {
	cfg, err := config.LoadDefault()
	require.NoError(t, err)

	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, map[string]string{"Linked.kt": "runBlocking { }\n"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "Linked.kt"), filepath.Join(root, "Linked.kt")))

	ctx := context.Background()

	// Symlinks are skipped by default.
	source := &Files{
		Config: &cfg,
		Path:   root,
		Sema:   semgroup.NewGroup(ctx, 4),
	}
	var count int
	require.NoError(t, source.Fragments(ctx, func(fragment blockscan.Fragment, err error) error {
		require.NoError(t, err)
		count++
		return nil
	}))
	assert.Zero(t, count)

	// With FollowSymlinks the target is read and the link path recorded.
	source = &Files{
		Config:         &cfg,
		FollowSymlinks: true,
		Path:           root,
		Sema:           semgroup.NewGroup(ctx, 4),
	}
	var (
		mu        sync.Mutex
		fragments []blockscan.Fragment
	)
	require.NoError(t, source.Fragments(ctx, func(fragment blockscan.Fragment, err error) error {
		require.NoError(t, err)
		mu.Lock()
		fragments = append(fragments, fragment)
		mu.Unlock()
		return nil
	}))
	require.Len(t, fragments, 1)
	assert.Equal(t, filepath.Join(root, "Linked.kt"), fragments[0].Resource.Get(blockscan.MetaSymlinkFile))
}

func TestFragmentsNonexistentRoot(t *testing.T) {
	cfg, err := config.LoadDefault()
	require.NoError(t, err)

	ctx := context.Background()
	source := &Files{
		Config: &cfg,
		Path:   filepath.Join(t.TempDir(), "does-not-exist"),
		Sema:   semgroup.NewGroup(ctx, 4),
	}
	require.NoError(t, source.Fragments(ctx, func(fragment blockscan.Fragment, err error) error {
		t.Fatalf("unexpected fragment %q", fragment.Path)
		return nil
	}))
}
