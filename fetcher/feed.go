package fetcher

import (
	"context"
	"fmt"
	"log"

	"github.com/mmcdole/gofeed"

	"insighthub/types"
)

// Submitter accepts a URL for asynchronous processing and returns the
// content ID assigned to it.
type Submitter interface {
	Submit(ctx context.Context, url string, sourceType types.SourceType) (string, error)
}

// FeedIngester walks an RSS/Atom feed and submits each entry as a
// link_post. Entries without a link are skipped.
type FeedIngester struct {
	parser    *gofeed.Parser
	submitter Submitter
}

// NewFeedIngester creates an ingester that submits into s.
func NewFeedIngester(s Submitter) *FeedIngester {
	return &FeedIngester{
		parser:    gofeed.NewParser(),
		submitter: s,
	}
}

// Ingest fetches the feed at feedURL and submits up to maxCount entries,
// returning the content IDs accepted by the pipeline.
func (f *FeedIngester) Ingest(ctx context.Context, feedURL string, maxCount int) ([]string, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	count := min(len(feed.Items), maxCount)
	ids := make([]string, 0, count)

	for i := 0; i < count; i++ {
		item := feed.Items[i]
		if item.Link == "" {
			continue
		}

		id, err := f.submitter.Submit(ctx, item.Link, types.SourceLinkPost)
		if err != nil {
			log.Printf("Failed to submit feed entry %s: %v", item.Link, err)
			continue
		}
		ids = append(ids, id)
	}

	log.Printf("✓ Ingested %d/%d entries from %s", len(ids), len(feed.Items), feed.Title)
	return ids, nil
}
