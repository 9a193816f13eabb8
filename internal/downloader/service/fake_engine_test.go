package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rizkirmdhn/universal-media-downloader/internal/common/cache"
	"github.com/rizkirmdhn/universal-media-downloader/internal/extractor"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
)

// fakeEngine writes files into the directory of the output template instead of running yt-dlp
type fakeEngine struct {
	mu sync.Mutex

	metadata    *extractor.Metadata
	metadataErr error

	title    string
	ext      string
	extras   []string // extra file extensions written next to the output
	errs     []error  // per attempt; nil entries succeed
	progress []extractor.Progress
	block    bool // wait for ctx cancellation

	metadataCalls int
	downloadCalls []extractor.Options
}

func (f *fakeEngine) Metadata(ctx context.Context, url string, opts extractor.Options) (*extractor.Metadata, error) {
	f.mu.Lock()
	f.metadataCalls++
	f.mu.Unlock()
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	return f.metadata, nil
}

func (f *fakeEngine) Download(ctx context.Context, url string, opts extractor.Options, fn extractor.ProgressFunc) (*extractor.Metadata, error) {
	f.mu.Lock()
	attempt := len(f.downloadCalls)
	f.downloadCalls = append(f.downloadCalls, opts)
	f.mu.Unlock()

	if fn != nil {
		for _, p := range f.progress {
			fn(p)
		}
	}

	if f.block {
		<-ctx.Done()
		return nil, extractor.Unexpected(ctx.Err())
	}

	if attempt < len(f.errs) && f.errs[attempt] != nil {
		return nil, f.errs[attempt]
	}

	dir := filepath.Dir(opts.OutputTemplate)
	ext := f.ext
	if ext == "" {
		ext = opts.PostProcess.Container
		if opts.PostProcess.ExtractAudio {
			ext = models.FormatMP3
		}
	}
	path := filepath.Join(dir, f.title+"."+ext)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		return nil, extractor.Unexpected(err)
	}
	for _, extra := range f.extras {
		stem := strings.TrimSuffix(path, filepath.Ext(path))
		if err := os.WriteFile(stem+extra, []byte("side"), 0o644); err != nil {
			return nil, extractor.Unexpected(err)
		}
	}

	return &extractor.Metadata{Title: f.title, Filename: path}, nil
}

func (f *fakeEngine) calls() []extractor.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]extractor.Options(nil), f.downloadCalls...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.ActivityEvent
}

func (r *recordingNotifier) Notify(_ context.Context, ev models.ActivityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingNotifier) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]cache.Entry)}
}

func (m *memoryCache) Get(_ context.Context, url string) (*cache.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[url]
	if !ok {
		return nil, cache.ErrMiss
	}
	return &entry, nil
}

func (m *memoryCache) Set(_ context.Context, url string, entry cache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = entry
	return nil
}
