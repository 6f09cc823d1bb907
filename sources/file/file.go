package file

import (
	"context"
	"fmt"
	"io"

	"github.com/h2non/filetype"

	"github.com/Ncn914491/blockscan"
	"github.com/Ncn914491/blockscan/config"
	"github.com/Ncn914491/blockscan/logging"
)

// Content is the resource kind for the textual content of a single file.
const Content blockscan.ResourceKind = "file_content"

func init() {
	blockscan.RegisterResourceKind(blockscan.ResourceKindInfo{
		Kind:         Content,
		IdentityKeys: []string{blockscan.MetaPath},
		Source:       "file",
	})
}

// File is a source yielding one fragment: the full content of one reader.
// This matches the check's semantics of loading a file into memory as a
// single immutable string.
type File struct {
	Content io.Reader
	Path    string
	Symlink string
	Config  *config.Config

	// Source type reported on the resource, e.g. "file" or "stdin".
	Source string
}

// Fragments reads the content and yields a single fragment for it. Binary
// files (detected by magic bytes) are skipped.
func (f *File) Fragments(ctx context.Context, yield blockscan.FragmentsFunc) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := io.ReadAll(f.Content)
	if err != nil {
		return yield(blockscan.Fragment{Path: f.Path}, fmt.Errorf("reading %s: %w", f.Path, err))
	}

	if kind, _ := filetype.Match(raw); kind != filetype.Unknown {
		logging.Debug().Str("path", f.Path).Str("type", kind.MIME.Value).Msg("skipping binary file")
		return nil
	}

	resource := &blockscan.Resource{
		Name:   f.Path,
		Path:   f.Path,
		Kind:   Content,
		Source: f.Source,
		Metadata: map[string]string{
			blockscan.MetaPath: f.Path,
		},
	}
	if f.Symlink != "" {
		resource.Set(blockscan.MetaSymlinkFile, f.Symlink)
	}

	return yield(blockscan.Fragment{
		Raw:      string(raw),
		Path:     f.Path,
		Resource: resource,
	}, nil)
}
