// Package pdf serializes an ordered page sequence into one multi-page PDF.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/imaging"
	"github.com/brogergvhs/mangapdf/internal/util"
)

func init() {
	api.DisableConfigDir()
}

var ErrNoPages = errors.New("pdf: no pages")

// Assemble writes pages into w. pages[0] becomes the first page and the rest
// follow in slice order. Pixel data is not touched: pages that carry encoded
// bytes are embedded as they are, the others are encoded losslessly.
func Assemble(w io.Writer, pages []downloader.Page) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	readers := make([]io.Reader, len(pages))
	for i, p := range pages {
		data, err := pageBytes(p)
		if err != nil {
			return fmt.Errorf("pdf: page %d: %w", i+1, err)
		}
		readers[i] = bytes.NewReader(data)
	}

	if err := api.ImportImages(nil, w, readers, nil, nil); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	return nil
}

func pageBytes(p downloader.Page) ([]byte, error) {
	if len(p.Data) > 0 {
		return p.Data, nil
	}
	if p.Image == nil {
		return nil, errors.New("empty page")
	}

	return imaging.EncodePNG(p.Image)
}

// WriteFile assembles the document next to path and renames it into place,
// so a failed chapter never leaves a truncated file behind.
func WriteFile(path string, pages []downloader.Page) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	tmp := path + util.PartialSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err = Assemble(f, pages); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("pdf: close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}

	return nil
}

func PageCount(rs io.ReadSeeker) (int, error) {
	return api.PageCount(rs, nil)
}
