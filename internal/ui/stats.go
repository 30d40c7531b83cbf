package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

type Stats struct {
	Downloaded atomic.Int64
	Skipped    atomic.Int64
	Pages      atomic.Int64
	Bytes      atomic.Int64
}

func (s *Stats) Print(w io.Writer, elapsed time.Duration) {
	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Chapters: %d (skipped %d)\n", s.Downloaded.Load(), s.Skipped.Load())
	_, _ = fmt.Fprintf(w, "Pages:    %d\n", s.Pages.Load())
	_, _ = fmt.Fprintf(w, "Data:     %s\n", HumanBytes(s.Bytes.Load()))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", elapsed.Round(time.Second))
}

var byteUnits = []string{"KB", "MB", "GB", "TB"}

func HumanBytes(n int64) string {
	if n < 1<<10 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n) / (1 << 10)
	unit := 0
	for v >= 1<<10 && unit < len(byteUnits)-1 {
		v /= 1 << 10
		unit++
	}

	return fmt.Sprintf("%.2f %s", v, byteUnits[unit])
}
