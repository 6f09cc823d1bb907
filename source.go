package blockscan

import (
	"context"
	"io"
)

// FragmentsFunc is the yield callback invoked once per fragment a source
// produces. Returning an error stops enumeration.
type FragmentsFunc func(fragment Fragment, err error) error

// Source enumerates resources and yields their fragments.
type Source interface {
	Fragments(ctx context.Context, yield FragmentsFunc) error
}

// Reporter writes findings to a report destination.
type Reporter interface {
	Write(w io.WriteCloser, findings []Finding) error
}
