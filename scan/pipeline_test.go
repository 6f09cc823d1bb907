package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
	_ "github.com/Ncn914491/blockscan/sources/file"
)

// loadConfig parses a TOML config string via viper, the same path user
// configs take through the CLI.
func loadConfig(t *testing.T, raw string) config.Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(raw)))
	var rc config.RawConfig
	require.NoError(t, v.Unmarshal(&rc))
	cfg, err := rc.Translate()
	require.NoError(t, err)
	return cfg
}

func loadDefaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadDefault()
	require.NoError(t, err)
	return cfg
}

// processTestFragment runs a fragment through the full pipeline and returns findings.
func processTestFragment(t *testing.T, cfg config.Config, raw, path string) []blockscan.Finding {
	t.Helper()
	ctx := context.Background()
	scanner := NewScanner(ctx, &cfg, 1)
	pipeline := NewPipeline(cfg, nil, *scanner)

	fragment := blockscan.Fragment{
		Raw:  raw,
		Path: path,
		Resource: &blockscan.Resource{
			Name:   path,
			Path:   path,
			Kind:   "file_content",
			Source: "file",
			Metadata: map[string]string{
				blockscan.MetaPath: path,
			},
		},
	}

	findings, err := pipeline.ProcessFragment(ctx, fragment)
	require.NoError(t, err)
	return findings
}

func TestProcessFragmentBlockingCacheCopy(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { doSomething(); runBlocking { copyToCacheSynchronous(uri) } }`

	findings := processTestFragment(t, cfg, content, "app/src/main/java/com/yourname/pdftoolkit/ui/MainActivity.kt")
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "blocking-cache-copy", f.RuleID)
	assert.Equal(t, "error", f.Severity)
	assert.Equal(t, 1, f.StartLine)
	assert.Equal(t, 1, f.EndLine)
	assert.Equal(t, 1, f.StartColumn)

	expectedMatch := content[:strings.Index(content, "copyToCacheSynchronous")+len("copyToCacheSynchronous")]
	assert.Equal(t, expectedMatch, f.Match)
	assert.Equal(t, len(expectedMatch), f.EndColumn)

	assert.Contains(t, f.Tags, "intent-handler")
	assert.Contains(t, f.Fingerprint, "file!file_content!")
	assert.Contains(t, f.Fingerprint, "!blocking-cache-copy!")
	assert.Equal(t, "app/src/main/java/com/yourname/pdftoolkit/ui/MainActivity.kt", f.File())
}

func TestProcessFragmentAsyncCopy(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { copyToCacheAsync(uri) }`

	findings := processTestFragment(t, cfg, content, "MainActivity.kt")
	assert.Empty(t, findings)
}

func TestProcessFragmentMultiLine(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `when (intent.action) {
    Intent.ACTION_VIEW, Intent.ACTION_SEND -> {
        runBlocking {
            copyToCacheSynchronous(uri)
        }
    }
}`

	findings := processTestFragment(t, cfg, content, "MainActivity.kt")
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "blocking-cache-copy", f.RuleID)
	assert.Equal(t, 2, f.StartLine)
	assert.Equal(t, 4, f.EndLine)
	assert.Equal(t, 5, f.StartColumn)
	assert.True(t, strings.HasPrefix(f.Match, "Intent.ACTION_VIEW"))
	assert.True(t, strings.HasSuffix(f.Match, "copyToCacheSynchronous"))
	// Line holds every line the match spans (lines 2 through 4).
	assert.Equal(t, 2, strings.Count(f.Line, "\n"))
	assert.True(t, strings.HasSuffix(f.Line, "copyToCacheSynchronous(uri)"))
}

func TestProcessFragmentAllowSignature(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { runBlocking { copyToCacheSynchronous(uri) } } // blockscan:allow`

	findings := processTestFragment(t, cfg, content, "MainActivity.kt")
	assert.Empty(t, findings)
}

func TestProcessFragmentGlobalAllowlistPath(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { runBlocking { copyToCacheSynchronous(uri) } }`

	// The default config allowlists test sources.
	findings := processTestFragment(t, cfg, content, "app/src/test/java/MainActivityTest.kt")
	assert.Empty(t, findings)

	findings = processTestFragment(t, cfg, content, "app/build/tmp/MainActivity.kt")
	assert.Empty(t, findings)
}

func TestProcessFragmentRuleAllowlist(t *testing.T) {
	cfg := loadConfig(t, `
[[rules]]
id = "sleep-in-coroutine"
regex = '''Thread\.sleep\('''
keywords = ["thread.sleep"]

[[rules.allowlists]]
description = "benchmarks sleep on purpose"
regex_target = "line"
regexes = ['''@Benchmark''']
`)

	findings := processTestFragment(t, cfg, "launch { Thread.sleep(100) }", "Worker.kt")
	require.Len(t, findings, 1)
	assert.Equal(t, "sleep-in-coroutine", findings[0].RuleID)

	findings = processTestFragment(t, cfg, "@Benchmark fun f() { Thread.sleep(100) }", "Worker.kt")
	assert.Empty(t, findings)
}

func TestProcessFragmentPathOnlyRule(t *testing.T) {
	cfg := loadConfig(t, `
[[rules]]
id = "no-java-thread-helpers"
path = '''ThreadHelpers\.java$'''
`)

	findings := processTestFragment(t, cfg, "package foo;", "src/ThreadHelpers.java")
	require.Len(t, findings, 1)
	assert.Equal(t, "no-java-thread-helpers", findings[0].RuleID)
	assert.Empty(t, findings[0].Match)

	findings = processTestFragment(t, cfg, "package foo;", "src/Other.java")
	assert.Empty(t, findings)
}

func TestPipelineRunDedupes(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { runBlocking { copyToCacheSynchronous(uri) } }`

	fragment := blockscan.Fragment{
		Raw:  content,
		Path: "MainActivity.kt",
		Resource: &blockscan.Resource{
			Path:     "MainActivity.kt",
			Kind:     "file_content",
			Source:   "file",
			Metadata: map[string]string{blockscan.MetaPath: "MainActivity.kt"},
		},
	}

	// A source that yields the same fragment twice.
	src := sourceFunc(func(ctx context.Context, yield blockscan.FragmentsFunc) error {
		if err := yield(fragment, nil); err != nil {
			return err
		}
		return yield(fragment, nil)
	})

	ctx := context.Background()
	scanner := NewScanner(ctx, &cfg, 1)
	pipeline := NewPipeline(cfg, src, *scanner)

	var findings []blockscan.Finding
	err := pipeline.Run(ctx, func(finding blockscan.Finding, err error) error {
		if err != nil {
			return err
		}
		findings = append(findings, finding)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, findings, 1)
	assert.Equal(t, uint64(2*len(content)), pipeline.TotalBytes())
}

type sourceFunc func(ctx context.Context, yield blockscan.FragmentsFunc) error

func (f sourceFunc) Fragments(ctx context.Context, yield blockscan.FragmentsFunc) error {
	return f(ctx, yield)
}

func TestScannerIgnore(t *testing.T) {
	cfg := loadDefaultConfig(t)
	content := `Intent.ACTION_VIEW, Intent.ACTION_SEND -> { runBlocking { copyToCacheSynchronous(uri) } }`

	// First pass: learn the fingerprint.
	findings := processTestFragment(t, cfg, content, "MainActivity.kt")
	require.Len(t, findings, 1)
	fingerprint := findings[0].Fingerprint

	// Second pass with the fingerprint ignored.
	ctx := context.Background()
	scanner := NewScanner(ctx, &cfg, 1)
	scanner.SetIgnore(map[string]struct{}{fingerprint: {}})
	pipeline := NewPipeline(cfg, nil, *scanner)

	fragment := blockscan.Fragment{
		Raw:  content,
		Path: "MainActivity.kt",
		Resource: &blockscan.Resource{
			Path:     "MainActivity.kt",
			Kind:     "file_content",
			Source:   "file",
			Metadata: map[string]string{blockscan.MetaPath: "MainActivity.kt"},
		},
	}
	ignored, err := pipeline.ProcessFragment(ctx, fragment)
	require.NoError(t, err)
	assert.Empty(t, ignored)
}
