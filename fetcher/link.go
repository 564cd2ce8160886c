package fetcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"insighthub/ports"
	"insighthub/resilience"
)

const defaultExtractTimeout = 30 * time.Second

// LinkAdapter fetches a web page and extracts readable article text.
// It is the default adapter for link_post submissions.
type LinkAdapter struct {
	Timeout time.Duration
}

// NewLinkAdapter returns a LinkAdapter with the default timeout.
func NewLinkAdapter() *LinkAdapter {
	return &LinkAdapter{Timeout: defaultExtractTimeout}
}

// Fetch implements ports.ContentSourceAdapter.
func (a *LinkAdapter) Fetch(ctx context.Context, url string) (*ports.FetchResult, error) {
	timeout := a.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	article, err := readability.FromURL(url, timeout)
	if err != nil {
		return nil, fmt.Errorf("readability extraction failed: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		// A page with no extractable text will never yield a useful
		// summary, so retrying is pointless.
		return nil, resilience.Permanent(fmt.Errorf("no readable content at %s", url))
	}

	result := &ports.FetchResult{
		RawText: text,
		Title:   article.Title,
	}
	if article.PublishedTime != nil {
		result.PublishedAt = *article.PublishedTime
	}
	return result, nil
}
