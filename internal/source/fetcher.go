package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/futig/news-rag/internal/entity"
	pkghttp "github.com/futig/news-rag/pkg/http"
)

const (
	userAgent        = "news-rag/1.0 (+https://github.com/futig/news-rag)"
	maxBodyBytes     = 8 << 20
	scrapeConcurrent = 8
)

type FetcherConfig struct {
	FeedURLs []string
	// Items taken from each feed.
	MaxPerFeed int
}

// Fetcher builds a corpus from RSS feeds: it reads every feed, downloads
// each linked page and keeps the paragraph text. Items that fail to download
// or have no text are skipped.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
}

func NewFetcher(cfg FetcherConfig, client *http.Client) *Fetcher {
	if client == nil {
		client = pkghttp.NewClient(pkghttp.WithRequestLogging())
	}
	return &Fetcher{cfg: cfg, client: client}
}

// ArticleID derives a stable article id from its URL.
func ArticleID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

func (f *Fetcher) Fetch(ctx context.Context) ([]entity.Article, error) {
	var candidates []entity.Article
	seen := make(map[string]bool)

	for _, feedURL := range f.cfg.FeedURLs {
		feed, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ctxzap.Warn(ctx, "skipping feed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}

		items := feed.Items
		if f.cfg.MaxPerFeed > 0 && len(items) > f.cfg.MaxPerFeed {
			items = items[:f.cfg.MaxPerFeed]
		}
		for _, it := range items {
			if it.Link == "" || seen[it.Link] {
				continue
			}
			seen[it.Link] = true
			candidates = append(candidates, entity.Article{
				ID:        ArticleID(it.Link),
				Title:     it.Title,
				URL:       it.Link,
				Published: ParsePublished(it.Published),
				Source:    feed.Title,
			})
		}
	}

	ctxzap.Info(ctx, "feeds read", zap.Int("feeds", len(f.cfg.FeedURLs)), zap.Int("items", len(candidates)))

	keep := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeConcurrent)
	for i := range candidates {
		g.Go(func() error {
			text, err := f.scrape(gctx, candidates[i].URL)
			if err != nil {
				ctxzap.Warn(gctx, "failed to scrape article", zap.String("url", candidates[i].URL), zap.Error(err))
				return nil
			}
			if text == "" {
				return nil
			}
			candidates[i].Text = text
			keep[i] = true
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	articles := make([]entity.Article, 0, len(candidates))
	for i, a := range candidates {
		if keep[i] {
			articles = append(articles, a)
		}
	}

	ctxzap.Info(ctx, "articles scraped", zap.Int("articles", len(articles)))
	return articles, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) (*Feed, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseFeed(body)
}

func (f *Fetcher) scrape(ctx context.Context, url string) (string, error) {
	body, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return ExtractParagraphs(body)
}

func (f *Fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &pkghttp.NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &pkghttp.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}
