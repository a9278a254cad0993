// Package preview enriches link posts with Open Graph metadata.
package preview

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/opengrove/groupfeed/internal/logx"
	"github.com/opengrove/groupfeed/internal/types"
	"github.com/opengrove/groupfeed/internal/workpool"
)

const defaultConcurrency = 3

// Fetcher downloads link targets and extracts og:title/og:description/og:image.
type Fetcher struct {
	httpc       *http.Client
	concurrency int
}

// New creates a Fetcher. concurrency < 1 falls back to the default.
func New(timeout time.Duration, concurrency int) *Fetcher {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{
		httpc:       &http.Client{Timeout: timeout},
		concurrency: concurrency,
	}
}

// Enrich fills preview fields on every link post that lacks a title. Fetches
// run through the bounded worker pool; a failed fetch leaves its post untouched.
func (f *Fetcher) Enrich(ctx context.Context, posts []*types.Post) {
	var links []*types.Post
	for _, p := range posts {
		if p.Kind == types.KindLink && p.Link != nil && p.Link.Title == "" {
			links = append(links, p)
		}
	}
	if len(links) == 0 {
		return
	}

	workpool.Each(ctx, f.concurrency, links, func(ctx context.Context, p *types.Post) error {
		title, desc, img, err := f.fetch(ctx, p.Link.URL)
		if err != nil {
			logx.Warn.Printf("link preview failed for %s: %v", p.Link.URL, err)
			return nil
		}
		p.Link.Title = title
		p.Link.Description = desc
		p.Link.ImageURL = img
		return nil
	})
}

func (f *Fetcher) fetch(ctx context.Context, url string) (title, description, imageURL string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return "", "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", "", "", err
	}

	title = metaContent(doc, "og:title")
	if title == "" {
		title = doc.Find("title").First().Text()
	}
	description = metaContent(doc, "og:description")
	imageURL = metaContent(doc, "og:image")
	return title, description, imageURL, nil
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return content
}
