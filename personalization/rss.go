package personalization

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// DefaultMaxFeedItems caps feeds that declare no per-feed limit.
const DefaultMaxFeedItems = 10

// Item is the slice of a feed entry that ends up in prompts.
type Item struct {
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
}

// FeedFetcher fetches and parses one feed. Tests substitute a stub.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

type gofeedFetcher struct {
	parser *gofeed.Parser
}

func (f *gofeedFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	return f.parser.ParseURLWithContext(url, ctx)
}

// NewFeedFetcher returns the production gofeed-backed fetcher.
func NewFeedFetcher() FeedFetcher {
	return &gofeedFetcher{parser: gofeed.NewParser()}
}

type cachedFeed struct {
	Items     []Item    `json:"entries"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FeedCache serves feed items from a JSON disk cache, refetching
// through its FeedFetcher when an entry is older than the TTL. The
// cache survives process restarts, so back-to-back runs reuse fetched
// feeds.
type FeedCache struct {
	dir     string
	ttl     time.Duration
	fetcher FeedFetcher
	logger  *zap.Logger
	now     func() time.Time

	// Guards refresh so concurrent category workers fetch each feed
	// at most once.
	mu sync.Mutex
}

// NewFeedCache creates the cache, ensuring dir exists.
func NewFeedCache(dir string, ttl time.Duration, fetcher FeedFetcher, logger *zap.Logger) (*FeedCache, error) {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	if fetcher == nil {
		fetcher = NewFeedFetcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache dir: %w", err)
	}
	return &FeedCache{dir: dir, ttl: ttl, fetcher: fetcher, logger: logger, now: time.Now}, nil
}

var unsafePathChars = regexp.MustCompile(`[^\w\-.]`)

func (c *FeedCache) cachePath(url string) string {
	return filepath.Join(c.dir, "rss_cache_"+unsafePathChars.ReplaceAllString(url, "_")+".json")
}

// Items returns up to ref.MaxEntries items for the feed (or
// DefaultMaxFeedItems when the feed declares no limit), from cache
// when fresh.
func (c *FeedCache) Items(ctx context.Context, ref FeedRef) ([]Item, error) {
	limit := ref.MaxEntries
	if limit <= 0 {
		limit = DefaultMaxFeedItems
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if items, ok := c.loadFresh(ref.URL); ok {
		if len(items) > limit {
			items = items[:limit]
		}
		c.logger.Debug("rss cache hit", zap.String("url", ref.URL), zap.Int("items", len(items)))
		return items, nil
	}

	feed, err := c.fetcher.Fetch(ctx, ref.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", ref.URL, err)
	}
	items := make([]Item, 0, limit)
	for _, it := range feed.Items {
		if len(items) == limit {
			break
		}
		items = append(items, Item{
			Title:     it.Title,
			Summary:   it.Description,
			Published: it.Published,
		})
	}
	c.save(ref.URL, items)
	c.logger.Info("rss feed fetched", zap.String("url", ref.URL), zap.Int("items", len(items)))
	return items, nil
}

// loadFresh returns cached items when the file exists and is younger
// than the TTL. Freshness comes from the file's mtime, matching how
// the cache files are managed by hand.
func (c *FeedCache) loadFresh(url string) ([]Item, bool) {
	path := c.cachePath(url)
	info, err := os.Stat(path)
	if err != nil || c.now().Sub(info.ModTime()) >= c.ttl {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cached cachedFeed
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.logger.Warn("discarding unreadable rss cache", zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return cached.Items, true
}

func (c *FeedCache) save(url string, items []Item) {
	raw, err := json.MarshalIndent(cachedFeed{Items: items, FetchedAt: c.now().UTC()}, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cachePath(url), raw, 0o644); err != nil {
		c.logger.Warn("failed to write rss cache", zap.String("url", url), zap.Error(err))
	}
}

// Clear removes the cache entry for one feed, or every entry when url
// is empty. It reports how many files were removed.
func (c *FeedCache) Clear(url string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if url != "" {
		if err := os.Remove(c.cachePath(url)); err != nil {
			if os.IsNotExist(err) {
				return 0, nil
			}
			return 0, err
		}
		return 1, nil
	}
	matches, err := filepath.Glob(filepath.Join(c.dir, "rss_cache_*.json"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// CachedFeedInfo describes one cache file for the cache-info command.
type CachedFeedInfo struct {
	File     string
	AgeHours float64
	Valid    bool
}

// CacheInfo summarizes the cache state.
type CacheInfo struct {
	Dir      string
	TTLHours float64
	Feeds    []CachedFeedInfo
}

// Info lists every cache file with its age and validity.
func (c *FeedCache) Info() (CacheInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := CacheInfo{Dir: c.dir, TTLHours: c.ttl.Hours()}
	matches, err := filepath.Glob(filepath.Join(c.dir, "rss_cache_*.json"))
	if err != nil {
		return info, err
	}
	for _, m := range matches {
		stat, err := os.Stat(m)
		if err != nil {
			continue
		}
		age := c.now().Sub(stat.ModTime())
		info.Feeds = append(info.Feeds, CachedFeedInfo{
			File:     filepath.Base(m),
			AgeHours: age.Hours(),
			Valid:    age < c.ttl,
		})
	}
	return info, nil
}
