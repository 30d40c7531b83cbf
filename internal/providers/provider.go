package providers

import "context"

// ChapterPage is what a chapter's markup yields.
type ChapterPage struct {
	URL    string
	Images []string
	// Next is empty on the last chapter of the series.
	Next string
}

func (p ChapterPage) Last() bool {
	return p.Next == ""
}

type Site interface {
	Chapter(ctx context.Context, url string) (ChapterPage, error)
}
