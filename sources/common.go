package sources

import (
	"context"

	"github.com/mholt/archives"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
	"github.com/Ncn914491/blockscan/logging"
)

// IsArchive does a light check to see if the provided path is an archive or
// compressed file. Archives are skipped, not traversed: blocking-call
// patterns live in checked-out source trees.
func IsArchive(ctx context.Context, path string) bool {
	format, _, err := archives.Identify(ctx, path, nil)
	return err == nil && format != nil
}

// ShouldSkipPath checks a path against all the allowlists to see if it can
// be skipped.
func ShouldSkipPath(cfg *config.Config, source string, path string) bool {
	if cfg == nil {
		logging.Trace().Str("path", path).Msg("not skipping path because config is nil")
		return false
	}

	for _, a := range cfg.Allowlists {
		if a.ResourceKeyAllowed(source, blockscan.MetaPath, path) {
			return true
		}
	}

	return false
}
