package downloader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/mangapdf/internal/failure"
	"github.com/brogergvhs/mangapdf/internal/imaging"
)

// fakeFetcher serves canned bodies, optionally delayed per URL, and records
// the peak number of concurrent calls.
type fakeFetcher struct {
	bodies map[string][]byte
	delay  map[string]time.Duration
	fail   map[string]error

	mu    sync.Mutex
	order []string
	calls map[string]int

	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: map[string][]byte{},
		delay:  map[string]time.Duration{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[url]++
	f.mu.Unlock()

	if d := f.delay[url]; d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}

	if err := f.fail[url]; err != nil {
		return nil, failure.Network(url, err)
	}

	f.mu.Lock()
	f.order = append(f.order, url)
	f.mu.Unlock()

	return f.bodies[url], nil
}

type countingCodec struct {
	imaging.Standard
	encodes atomic.Int32
}

func (c *countingCodec) EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	c.encodes.Add(1)

	return c.Standard.EncodeJPEG(img, quality)
}

type recordingProgress struct {
	mu      sync.Mutex
	updates [][2]int
}

func (p *recordingProgress) Update(done, total int, _ int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, [2]int{done, total})
}

// pagePNG encodes a 2x2 opaque image whose red channel carries idx.
func pagePNG(t *testing.T, idx int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.RGBA{R: uint8(idx), G: 7, B: 9, A: 255})
		}
	}

	data, err := imaging.EncodePNG(img)
	require.NoError(t, err)

	return data
}

func seedPages(t *testing.T, f *fakeFetcher, n int) []string {
	t.Helper()

	urls := make([]string, n)
	for i := range n {
		urls[i] = fmt.Sprintf("https://cdn.example/%03d.png", i)
		f.bodies[urls[i]] = pagePNG(t, i)
	}

	return urls
}

func redAt(img image.Image) uint8 {
	r, _, _, _ := img.At(0, 0).RGBA()

	return uint8(r >> 8)
}

func TestFetchPagesKeepsOrderRegardlessOfCompletion(t *testing.T) {
	t.Parallel()

	const n = 10
	for _, k := range []int{1, 3, n} {
		t.Run(fmt.Sprintf("concurrency=%d", k), func(t *testing.T) {
			t.Parallel()

			f := newFakeFetcher()
			urls := seedPages(t, f, n)
			// later pages finish first
			for i, u := range urls {
				f.delay[u] = time.Duration(n-i) * 3 * time.Millisecond
			}

			d, err := New(f, Options{Concurrency: k, Quality: 100}, nil)
			require.NoError(t, err)

			pages, err := d.FetchPages(context.Background(), urls, nil)
			require.NoError(t, err)
			require.Len(t, pages, n)

			for i, p := range pages {
				assert.Equal(t, i, p.Index)
				assert.Equal(t, uint8(i), redAt(p.Image), "slot %d holds another page", i)
			}

			if k == n {
				assert.NotEqual(t, urls, f.order, "completion order should differ from submission order")
			}
		})
	}
}

func TestFetchPagesRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	const n, k = 16, 3
	f := newFakeFetcher()
	urls := seedPages(t, f, n)
	for _, u := range urls {
		f.delay[u] = 10 * time.Millisecond
	}

	d, err := New(f, Options{Concurrency: k, Quality: 100}, nil)
	require.NoError(t, err)

	_, err = d.FetchPages(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, f.peak.Load(), int32(k))
	assert.GreaterOrEqual(t, f.peak.Load(), int32(1))
	for _, u := range urls {
		assert.Equal(t, 1, f.calls[u])
	}
}

func TestFetchPagesFailureAbortsBatch(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	urls := seedPages(t, f, 6)
	f.fail[urls[0]] = errors.New("HTTP 500")
	for _, u := range urls[1:] {
		f.delay[u] = 5 * time.Second
	}

	d, err := New(f, Options{Concurrency: 6, Quality: 100}, nil)
	require.NoError(t, err)

	start := time.Now()
	pages, err := d.FetchPages(context.Background(), urls, nil)

	require.ErrorIs(t, err, failure.ErrNetwork)
	assert.Contains(t, err.Error(), "page 1 / 6")
	assert.Nil(t, pages)
	assert.Less(t, time.Since(start), 2*time.Second, "in-flight fetches should be cancelled")
}

func TestFetchPagesDecodeFailure(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	urls := seedPages(t, f, 3)
	f.bodies[urls[2]] = []byte("<html>403</html>")

	d, err := New(f, Options{Concurrency: 2, Quality: 100}, nil)
	require.NoError(t, err)

	_, err = d.FetchPages(context.Background(), urls, nil)
	require.ErrorIs(t, err, failure.ErrDecode)
}

func TestFetchPagesWithoutURLs(t *testing.T) {
	t.Parallel()

	d, err := New(newFakeFetcher(), Options{Concurrency: 2, Quality: 100}, nil)
	require.NoError(t, err)

	_, err = d.FetchPages(context.Background(), nil, nil)
	require.ErrorIs(t, err, failure.ErrMissingContent)
}

func TestFullQualitySkipsLossyEncode(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	urls := seedPages(t, f, 4)
	codec := &countingCodec{}

	d, err := New(f, Options{Concurrency: 2, Quality: 100, Codec: codec}, nil)
	require.NoError(t, err)

	pages, err := d.FetchPages(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Zero(t, codec.encodes.Load())
	for i, p := range pages {
		assert.Equal(t, f.bodies[urls[i]], p.Data, "downloaded bytes are used as-is")
		assert.Equal(t, "png", p.Format)
	}
}

func TestLowerQualityRoundTripsThroughJPEG(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	urls := seedPages(t, f, 4)
	codec := &countingCodec{}

	d, err := New(f, Options{Concurrency: 2, Quality: 60, Codec: codec}, nil)
	require.NoError(t, err)

	pages, err := d.FetchPages(context.Background(), urls, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(len(urls)), codec.encodes.Load())
	for _, p := range pages {
		assert.Equal(t, "jpeg", p.Format)
		_, format, err := codec.Decode(p.Data)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
		assert.True(t, imaging.IsTruecolor(p.Image))
	}
}

func TestNonTruecolorPageIsConverted(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 2, 2))
	data, err := imaging.EncodePNG(gray)
	require.NoError(t, err)

	f := newFakeFetcher()
	f.bodies["https://cdn.example/gray.png"] = data

	d, err := New(f, Options{Concurrency: 1, Quality: 100}, nil)
	require.NoError(t, err)

	pages, err := d.FetchPages(context.Background(), []string{"https://cdn.example/gray.png"}, nil)
	require.NoError(t, err)
	require.Len(t, pages, 1)

	assert.IsType(t, &image.RGBA{}, pages[0].Image)
	assert.Nil(t, pages[0].Data, "converted pages are encoded by the assembler")
}

func TestFetchPagesReportsProgress(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	urls := seedPages(t, f, 5)
	ph := &recordingProgress{}

	d, err := New(f, Options{Concurrency: 2, Quality: 100}, nil)
	require.NoError(t, err)

	_, err = d.FetchPages(context.Background(), urls, ph)
	require.NoError(t, err)

	require.Len(t, ph.updates, len(urls)+1)
	assert.Equal(t, [2]int{0, 5}, ph.updates[0])
	assert.Equal(t, [2]int{5, 5}, ph.updates[len(ph.updates)-1])
}

func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		ok   bool
	}{
		{"defaults", Options{Concurrency: 8, Quality: 100}, true},
		{"lowest quality", Options{Concurrency: 1, Quality: 1}, true},
		{"zero workers", Options{Concurrency: 0, Quality: 100}, false},
		{"zero quality", Options{Concurrency: 1, Quality: 0}, false},
		{"quality above 100", Options{Concurrency: 1, Quality: 101}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(newFakeFetcher(), tt.opts, nil)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
