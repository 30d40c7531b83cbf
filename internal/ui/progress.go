package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// MPBProgressManager owns one mpb container. The walker registers one bar per
// downloaded chapter.
type MPBProgressManager struct {
	p    *mpb.Progress
	once sync.Once
}

func NewProgressManager() *MPBProgressManager {
	return NewProgressManagerTo(os.Stdout)
}

func NewProgressManagerTo(w io.Writer) *MPBProgressManager {
	p := mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(w),
		mpb.WithRefreshRate(120*time.Millisecond),
	)

	return &MPBProgressManager{p: p}
}

// Close waits for every registered bar. Later calls return immediately.
func (pm *MPBProgressManager) Close() {
	pm.once.Do(pm.p.Wait)
}

func (pm *MPBProgressManager) Register(prefix string) *ProgressHandle {
	h := &ProgressHandle{
		pm:     pm,
		prefix: prefix,
	}
	h.initBar()

	return h
}

type ProgressHandle struct {
	pm     *MPBProgressManager
	prefix string
	bar    *mpb.Bar

	total atomic.Int64
	bytes atomic.Int64

	start   time.Time
	elapsed atomic.Int64

	final atomic.Bool
}

func (h *ProgressHandle) initBar() {
	h.start = time.Now()

	h.bar = h.pm.p.New(
		0,
		mpb.BarStyle().Rbound("]"),
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name(h.prefix+"  "),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.CountersNoUnit(" | Page %d / %d", decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return " | " + HumanBytes(h.bytes.Load())
			}),
			decor.Any(func(_ decor.Statistics) string {
				if h.final.Load() {
					return fmt.Sprintf(" | %ds", h.elapsed.Load())
				}

				return fmt.Sprintf(" | %ds", int(time.Since(h.start).Seconds()))
			}),
		),
	)
}

// Update records that done of total pages are finished.
func (h *ProgressHandle) Update(done, total int, bytes int64) {
	if h.final.Load() {
		return
	}

	if total > 0 && int64(total) != h.total.Load() {
		h.total.Store(int64(total))
		h.bar.SetTotal(int64(total), false)
	}

	h.bytes.Store(bytes)
	h.bar.SetCurrent(int64(done))
}

// MarkDone completes the bar. Calling it again is a no-op.
func (h *ProgressHandle) MarkDone() {
	if h.final.Swap(true) {
		return
	}

	h.elapsed.Store(int64(time.Since(h.start).Seconds()))
	h.bar.SetTotal(h.total.Load(), true)
}

// Abort drops the bar of a chapter that failed.
func (h *ProgressHandle) Abort() {
	if h.final.Swap(true) {
		return
	}

	h.bar.Abort(true)
}
