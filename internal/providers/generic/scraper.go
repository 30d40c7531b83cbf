package generic

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/brogergvhs/mangapdf/internal/failure"
	"github.com/brogergvhs/mangapdf/internal/providers"
	"github.com/brogergvhs/mangapdf/internal/util"
)

type Selectors struct {
	Content  string
	Image    string
	Next     string
	NextLink string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Content:  "div.entry-content p",
		Image:    "img",
		Next:     "div.nav-next",
		NextLink: "a[href]",
	}
}

func (s Selectors) withDefaults() Selectors {
	def := DefaultSelectors()
	if s.Content == "" {
		s.Content = def.Content
	}
	if s.Image == "" {
		s.Image = def.Image
	}
	if s.Next == "" {
		s.Next = def.Next
	}
	if s.NextLink == "" {
		s.NextLink = def.NextLink
	}

	return s
}

// lazy-loading themes move the real source out of src
var imageAttrs = []string{"src", "data-src", "data-lazy-src", "data-original"}

type Scraper struct {
	fetcher util.Fetcher
	sel     Selectors
	log     interface{ Debugf(string, ...any) }
}

func NewScraper(f util.Fetcher, sel Selectors, log interface{ Debugf(string, ...any) }) *Scraper {
	return &Scraper{
		fetcher: f,
		sel:     sel.withDefaults(),
		log:     log,
	}
}

func (s *Scraper) Chapter(ctx context.Context, chapterURL string) (providers.ChapterPage, error) {
	body, err := s.fetcher.Fetch(ctx, chapterURL)
	if err != nil {
		return providers.ChapterPage{}, err
	}

	return s.Parse(chapterURL, body)
}

// Parse extracts the page list and the next chapter link from raw markup.
func (s *Scraper) Parse(chapterURL string, body []byte) (providers.ChapterPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return providers.ChapterPage{}, failure.Decode(chapterURL, err)
	}

	images, err := s.images(doc, chapterURL)
	if err != nil {
		return providers.ChapterPage{}, err
	}

	next, err := s.next(doc, chapterURL)
	if err != nil {
		return providers.ChapterPage{}, err
	}

	if s.log != nil {
		s.log.Debugf("%s: %d pages, next=%q\n", chapterURL, len(images), next)
	}

	return providers.ChapterPage{URL: chapterURL, Images: images, Next: next}, nil
}

func (s *Scraper) images(doc *goquery.Document, chapterURL string) ([]string, error) {
	content := doc.Find(s.sel.Content).First()
	if content.Length() == 0 {
		return nil, failure.MissingContent(chapterURL, "no element matches %q", s.sel.Content)
	}

	var (
		out     []string
		missing int
	)
	content.Find(s.sel.Image).Each(func(i int, img *goquery.Selection) {
		src := imageSource(img)
		if src == "" {
			if missing == 0 {
				missing = i + 1
			}
			return
		}
		out = append(out, resolve(chapterURL, src))
	})

	if missing > 0 {
		return nil, failure.MissingContent(chapterURL, "image %d has no source attribute", missing)
	}
	if len(out) == 0 {
		return nil, failure.MissingContent(chapterURL, "no %q inside %q", s.sel.Image, s.sel.Content)
	}

	return out, nil
}

func imageSource(img *goquery.Selection) string {
	for _, k := range imageAttrs {
		if v, ok := img.Attr(k); ok {
			if v = strings.TrimSpace(v); v != "" && !strings.HasPrefix(v, "data:") {
				return v
			}
		}
	}

	return ""
}

func (s *Scraper) next(doc *goquery.Document, chapterURL string) (string, error) {
	nav := doc.Find(s.sel.Next).First()
	if nav.Length() == 0 {
		return "", nil
	}

	href, ok := nav.Find(s.sel.NextLink).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", failure.MissingContent(chapterURL, "%q has no %q", s.sel.Next, s.sel.NextLink)
	}

	return resolve(chapterURL, strings.TrimSpace(href)), nil
}

func resolve(chapterURL, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u == nil {
		return raw
	}

	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(chapterURL)
	if err != nil || base == nil {
		return raw
	}

	return base.ResolveReference(u).String()
}
