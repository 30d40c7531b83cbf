package chapters

import (
	"net/url"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/brogergvhs/mangapdf/internal/failure"
)

const Extension = ".pdf"

// Chapter is one link in the series chain.
type Chapter struct {
	URL      string
	Title    string
	Filename string
}

func New(rawURL string) (Chapter, error) {
	title, filename, err := DeriveName(rawURL)
	if err != nil {
		return Chapter{}, err
	}

	return Chapter{URL: rawURL, Title: title, Filename: filename}, nil
}

func (c Chapter) OutputPath(dir string) string {
	return filepath.Join(dir, c.Filename)
}

// DeriveName builds the display title and the on-disk filename from the
// last path segment of a chapter URL. It depends on nothing but its input.
func DeriveName(rawURL string) (title, filename string, err error) {
	words := slugWords(rawURL)
	if len(words) == 0 {
		return "", "", failure.MissingContent(rawURL, "no chapter slug in URL path")
	}

	titled := make([]string, len(words))
	for i, w := range words {
		titled[i] = capitalize(w)
	}

	return strings.Join(titled, " "), strings.Join(words, "_") + Extension, nil
}

func slugWords(rawURL string) []string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	var segment string
	for s := range strings.SplitSeq(p, "/") {
		if s != "" {
			segment = s
		}
	}

	var words []string
	for w := range strings.SplitSeq(segment, "-") {
		if w = sanitize(w); w != "" {
			words = append(words, w)
		}
	}

	return words
}

func sanitize(s string) string {
	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			clean = append(clean, r)
		}
	}

	return strings.Trim(string(clean), "._")
}

func capitalize(w string) string {
	r, size := utf8.DecodeRuneInString(w)

	return string(unicode.ToUpper(r)) + w[size:]
}
