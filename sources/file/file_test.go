package file

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ncn914491/blockscan"
)

const mainActivity = `class MainActivity {
    override fun onNewIntent(intent: Intent) {
        when (intent.action) {
            Intent.ACTION_VIEW, Intent.ACTION_SEND -> {
                runBlocking { copyToCacheSynchronous(uri) }
            }
        }
    }
}
`

func collectFragments(t *testing.T, source blockscan.Source) []blockscan.Fragment {
	t.Helper()
	var fragments []blockscan.Fragment
	err := source.Fragments(context.Background(), func(fragment blockscan.Fragment, err error) error {
		require.NoError(t, err)
		fragments = append(fragments, fragment)
		return nil
	})
	require.NoError(t, err)
	return fragments
}

func TestFileFragments(t *testing.T) {
	source := &File{
		Content: strings.NewReader(mainActivity),
		Path:    "ui/MainActivity.kt",
		Source:  "file",
	}

	fragments := collectFragments(t, source)
	require.Len(t, fragments, 1)

	f := fragments[0]
	assert.Equal(t, mainActivity, f.Raw)
	assert.Equal(t, "ui/MainActivity.kt", f.Path)

	require.NotNil(t, f.Resource)
	assert.Equal(t, Content, f.Resource.Kind)
	assert.Equal(t, "file", f.Resource.Source)
	assert.Equal(t, "ui/MainActivity.kt", f.Resource.Get(blockscan.MetaPath))
	assert.Empty(t, f.Resource.Get(blockscan.MetaSymlinkFile))
}

func TestFileFragmentsSymlink(t *testing.T) {
	source := &File{
		Content: strings.NewReader(mainActivity),
		Path:    "real/MainActivity.kt",
		Symlink: "link/MainActivity.kt",
		Source:  "file",
	}

	fragments := collectFragments(t, source)
	require.Len(t, fragments, 1)

	assert.Equal(t, "link/MainActivity.kt", fragments[0].Resource.Get(blockscan.MetaSymlinkFile))
}

func TestFileFragmentsSkipsBinary(t *testing.T) {
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 32)...)
	source := &File{
		Content: strings.NewReader(string(png)),
		Path:    "res/icon.png",
		Source:  "file",
	}

	err := source.Fragments(context.Background(), func(fragment blockscan.Fragment, err error) error {
		t.Fatalf("unexpected fragment for binary file: %q", fragment.Path)
		return nil
	})
	require.NoError(t, err)
}

func TestFileFragmentsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &File{
		Content: strings.NewReader(mainActivity),
		Path:    "ui/MainActivity.kt",
		Source:  "file",
	}
	err := source.Fragments(ctx, func(fragment blockscan.Fragment, err error) error {
		t.Fatal("yield should not run after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
