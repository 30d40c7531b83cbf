// Package downloader fetches the page images of one chapter with a bounded
// worker pool and returns them in document order.
package downloader

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/brogergvhs/mangapdf/internal/failure"
	"github.com/brogergvhs/mangapdf/internal/imaging"
	"github.com/brogergvhs/mangapdf/internal/util"
)

const MaxQuality = 100

// Page is one decoded slot of a chapter.
type Page struct {
	Index int
	Image image.Image

	// Data decodes exactly to Image when set. Nil means the assembler has to
	// encode Image itself.
	Data   []byte
	Format string

	// Size is the number of bytes downloaded for the page.
	Size int64
}

// Progress receives a completion report after every finished page.
type Progress interface {
	Update(done, total int, bytes int64)
}

type Options struct {
	Concurrency int
	// Quality in (0,100]. 100 disables lossy recompression.
	Quality int
	Codec   imaging.Codec
}

func (o Options) Validate() error {
	if o.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	if o.Quality <= 0 || o.Quality > MaxQuality {
		return fmt.Errorf("compression quality must be in (0,100], got %d", o.Quality)
	}

	return nil
}

type Downloader struct {
	fetcher util.Fetcher
	opts    Options
	log     interface{ Debugf(string, ...any) }
}

func New(f util.Fetcher, opts Options, log interface{ Debugf(string, ...any) }) (*Downloader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Codec == nil {
		opts.Codec = imaging.Standard{}
	}

	return &Downloader{fetcher: f, opts: opts, log: log}, nil
}

type batchState struct {
	mu    sync.Mutex
	done  int
	bytes int64
}

// FetchPages downloads every URL and returns the pages with pages[i] built
// from urls[i]. Each task owns its slot from submission on, so the slots are
// written without locks and read only after Wait. The first failure cancels
// the rest of the batch and no pages are returned.
func (d *Downloader) FetchPages(ctx context.Context, urls []string, ph Progress) ([]Page, error) {
	total := len(urls)
	if total == 0 {
		return nil, failure.MissingContent("", "chapter has no pages")
	}

	pages := make([]Page, total)
	state := &batchState{}
	if ph != nil {
		ph.Update(0, total, 0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(d.opts.Concurrency, total))

	for i, u := range urls {
		g.Go(func() error {
			page, err := d.fetchPage(gctx, i, u)
			if err != nil {
				return fmt.Errorf("page %d / %d: %w", i+1, total, err)
			}
			pages[i] = page

			state.mu.Lock()
			state.done++
			state.bytes += page.Size
			done, bytes := state.done, state.bytes
			if ph != nil {
				ph.Update(done, total, bytes)
			}
			state.mu.Unlock()

			if d.log != nil {
				d.log.Debugf("Page %d / %d\n", i+1, total)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

func (d *Downloader) fetchPage(ctx context.Context, idx int, u string) (Page, error) {
	raw, err := d.fetcher.Fetch(ctx, u)
	if err != nil {
		return Page{}, err
	}

	img, format, err := d.opts.Codec.Decode(raw)
	if err != nil {
		return Page{}, failure.Decode(u, err)
	}

	page := Page{Index: idx, Size: int64(len(raw))}

	if !imaging.IsTruecolor(img) {
		img = imaging.ToRGB(img)
	} else if format == "jpeg" || format == "png" {
		page.Data, page.Format = raw, format
	}

	if d.opts.Quality < MaxQuality {
		jpg, err := d.opts.Codec.EncodeJPEG(img, d.opts.Quality)
		if err != nil {
			return Page{}, failure.Decode(u, err)
		}

		img, _, err = d.opts.Codec.Decode(jpg)
		if err != nil {
			return Page{}, failure.Decode(u, err)
		}
		page.Data, page.Format = jpg, "jpeg"
	}

	page.Image = img

	return page, nil
}
