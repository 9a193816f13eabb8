// Package extractor wraps the external extraction-and-download engine.
package extractor

import "context"

// Engine inspects media URLs and downloads them
type Engine interface {
	// Metadata extracts the info document without downloading anything
	Metadata(ctx context.Context, url string, opts Options) (*Metadata, error)

	// Download downloads and post-processes url, reporting progress to fn.
	// The returned Metadata carries at least the title and predicted filename.
	Download(ctx context.Context, url string, opts Options, fn ProgressFunc) (*Metadata, error)
}
