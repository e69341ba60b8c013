package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-trading-ensemble/internal/engine/config"
	"golang-trading-ensemble/pkg/logger"
	"golang-trading-ensemble/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// rssNewsRepository fetches recent headlines from an RSS feed. Headlines are
// merged into the sentiment prompt as extra context.
type rssNewsRepository struct {
	parser *gofeed.Parser
	cfg    *config.Config
	logger *logger.Logger
}

// NewRSSNewsRepository creates a new instance of rssNewsRepository.
func NewRSSNewsRepository(cfg *config.Config, log *logger.Logger) NewsRepository {
	return &rssNewsRepository{
		parser: gofeed.NewParser(),
		cfg:    cfg,
		logger: log,
	}
}

// Headlines returns up to limit recent headlines mentioning the symbol. When
// no item mentions the symbol the most recent items are returned instead, so
// the sentiment model still receives general market context.
func (r *rssNewsRepository) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	feedURL := strings.ReplaceAll(r.cfg.News.FeedURL, "{symbol}", strings.ToUpper(symbol))

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	matched := make([]string, 0, limit)
	recent := make([]string, 0, limit)
	upper := strings.ToUpper(symbol)
	for _, item := range feed.Items {
		headline := headlineText(item)
		if headline == "" {
			continue
		}
		if len(recent) < limit {
			recent = append(recent, headline)
		}
		if strings.Contains(strings.ToUpper(headline), upper) && len(matched) < limit {
			matched = append(matched, headline)
		}
		if len(matched) >= limit {
			break
		}
	}

	if len(matched) > 0 {
		return matched, nil
	}
	return recent, nil
}

// headlineText combines an item's title with a plain-text rendering of its
// description, stripped of any embedded HTML.
func headlineText(item *gofeed.Item) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return ""
	}
	desc := strings.TrimSpace(item.Description)
	if desc == "" {
		return title
	}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(desc)); err == nil {
		desc = strings.TrimSpace(doc.Text())
	}
	if desc == "" {
		return title
	}
	return title + " - " + utils.Truncate(desc, 120)
}
