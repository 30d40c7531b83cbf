// Package walker follows a series from one chapter to the next and turns
// every chapter into a PDF.
package walker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/mangapdf/internal/chapters"
	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/pdf"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/ui"
)

var ErrCycle = errors.New("chapter chain loops back")

type Logger interface {
	Debugf(string, ...any)
	Infof(string, ...any)
}

type PageFetcher interface {
	FetchPages(ctx context.Context, urls []string, ph downloader.Progress) ([]downloader.Page, error)
}

// ChapterProgress tracks one chapter's batch.
type ChapterProgress interface {
	downloader.Progress
	MarkDone()
	Abort()
}

type Options struct {
	Output string
	DryRun bool
	// Progress opens a tracker per downloaded chapter. Nil disables it.
	Progress func(title string) ChapterProgress
}

type Walker struct {
	site  providers.Site
	pages PageFetcher
	opts  Options
	log   Logger
	stats *ui.Stats
}

func New(site providers.Site, pages PageFetcher, opts Options, log Logger) *Walker {
	return &Walker{
		site:  site,
		pages: pages,
		opts:  opts,
		log:   log,
		stats: &ui.Stats{},
	}
}

func (w *Walker) Stats() *ui.Stats {
	return w.stats
}

// HandleChapter processes one chapter and returns the URL of the next one,
// or "" at the end of the series. The chapter page is always fetched, even
// when its PDF already exists, because the next link lives there.
func (w *Walker) HandleChapter(ctx context.Context, url string) (string, error) {
	ch, err := chapters.New(url)
	if err != nil {
		return "", err
	}
	w.log.Infof("%s\n", ch.Title)

	page, err := w.site.Chapter(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ch.Title, err)
	}

	out := ch.OutputPath(w.opts.Output)
	if _, err := os.Stat(out); err == nil {
		w.log.Infof("Already exists!\n")
		w.stats.Skipped.Add(1)
		return page.Next, nil
	}

	if w.opts.DryRun {
		w.log.Infof("Would download %d pages to %s\n", len(page.Images), out)
		return page.Next, nil
	}

	var bar ChapterProgress
	if w.opts.Progress != nil {
		bar = w.opts.Progress(ch.Title)
	}

	pages, err := w.pages.FetchPages(ctx, page.Images, progressOrNil(bar))
	if err == nil {
		err = pdf.WriteFile(out, pages)
	}
	if err != nil {
		if bar != nil {
			bar.Abort()
		}
		return "", fmt.Errorf("%s: %w", ch.Title, err)
	}
	if bar != nil {
		bar.MarkDone()
	}

	w.stats.Downloaded.Add(1)
	w.stats.Pages.Add(int64(len(pages)))
	for _, p := range pages {
		w.stats.Bytes.Add(p.Size)
	}
	w.log.Debugf("Wrote %s (%d pages)\n", out, len(pages))

	return page.Next, nil
}

// progressOrNil keeps a nil ChapterProgress from turning into a non-nil
// downloader.Progress.
func progressOrNil(bar ChapterProgress) downloader.Progress {
	if bar == nil {
		return nil
	}

	return bar
}

// Run walks the chain from start until a chapter has no next link.
// Chapters are handled one at a time.
func (w *Walker) Run(ctx context.Context, start string) error {
	if w.opts.Output != "" {
		if err := os.MkdirAll(w.opts.Output, 0755); err != nil {
			return fmt.Errorf("cannot create output folder: %w", err)
		}
	}

	seen := map[string]bool{}
	for url := start; url != ""; {
		if seen[url] {
			return fmt.Errorf("%w: %s", ErrCycle, url)
		}
		seen[url] = true

		next, err := w.HandleChapter(ctx, url)
		if err != nil {
			return err
		}
		url = next
	}

	w.log.Infof("Done!\n")

	return nil
}
