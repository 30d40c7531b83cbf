package pdf

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/mangapdf/internal/downloader"
	"github.com/brogergvhs/mangapdf/internal/imaging"
)

func pageOf(t *testing.T, idx int, c color.Color) downloader.Page {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}

	return downloader.Page{Index: idx, Image: img}
}

func TestAssembleSinglePage(t *testing.T) {
	t.Parallel()

	page := pageOf(t, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, Assemble(&buf, []downloader.Page{page}))

	n, err := PageCount(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSinglePageBytesMatchImage(t *testing.T) {
	t.Parallel()

	page := pageOf(t, 0, color.RGBA{G: 200, A: 255})

	data, err := pageBytes(page)
	require.NoError(t, err)

	decoded, _, err := imaging.Standard{}.Decode(data)
	require.NoError(t, err)
	require.Equal(t, page.Image.Bounds(), decoded.Bounds())

	b := decoded.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			require.Equal(t, page.Image.At(x, y), decoded.At(x, y))
		}
	}
}

func TestPageBytesPrefersEncodedData(t *testing.T) {
	t.Parallel()

	page := pageOf(t, 0, color.White)
	page.Data = []byte("already encoded")

	data, err := pageBytes(page)
	require.NoError(t, err)
	assert.Equal(t, []byte("already encoded"), data)

	_, err = pageBytes(downloader.Page{})
	require.Error(t, err)
}

func TestAssembleKeepsPageCount(t *testing.T) {
	t.Parallel()

	jpg, err := imaging.Standard{}.EncodeJPEG(pageOf(t, 1, color.Black).Image, 80)
	require.NoError(t, err)

	pages := []downloader.Page{
		pageOf(t, 0, color.White),
		{Index: 1, Image: pageOf(t, 1, color.Black).Image, Data: jpg, Format: "jpeg"},
		pageOf(t, 2, color.RGBA{B: 255, A: 255}),
	}

	var buf bytes.Buffer
	require.NoError(t, Assemble(&buf, pages))

	n, err := PageCount(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAssembleWithoutPages(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Assemble(&bytes.Buffer{}, nil), ErrNoPages)
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pdf", "alice_in_borderland_chapter_1.pdf")

	require.NoError(t, WriteFile(path, []downloader.Page{pageOf(t, 0, color.White)}))

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	n, err := PageCount(f)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, path+".tmp")
}

func TestWriteFileFailureLeavesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")

	require.Error(t, WriteFile(path, []downloader.Page{{Index: 0}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
