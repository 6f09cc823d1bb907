package scan

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ncn914491/blockscan/logging"
)

// IgnoreFileName is the well-known name of the fingerprint ignore file.
const IgnoreFileName = ".blockscanignore"

// LoadIgnoreFile loads a .blockscanignore file and returns the set of
// fingerprints to ignore. The file format supports comments starting with #
// and blank lines; every other line is one fingerprint.
func LoadIgnoreFile(path string) (map[string]struct{}, error) {
	ignore := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	replacer := strings.NewReplacer("\\", "/")
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Normalize path separators inside the fingerprint.
		ignore[replacer.Replace(line)] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return ignore, nil
}

// LoadIgnoreFiles loads ignore files from the given path (a file, or a
// directory containing one) and from the scan target, merging the results.
// Missing files are fine; unreadable ones are logged and skipped.
func LoadIgnoreFiles(ignorePath, source string) map[string]struct{} {
	ignore := make(map[string]struct{})

	candidates := make([]string, 0, 2)
	if info, err := os.Stat(ignorePath); err == nil {
		if info.IsDir() {
			candidates = append(candidates, filepath.Join(ignorePath, IgnoreFileName))
		} else {
			candidates = append(candidates, ignorePath)
		}
	}
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		candidates = append(candidates, filepath.Join(source, IgnoreFileName))
	}

	for _, path := range candidates {
		loaded, err := LoadIgnoreFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				logging.Warn().Err(err).Str("path", path).Msg("could not load ignore file")
			}
			continue
		}
		logging.Debug().Str("path", path).Int("fingerprints", len(loaded)).Msg("loaded ignore file")
		for fp := range loaded {
			ignore[fp] = struct{}{}
		}
	}

	return ignore
}
