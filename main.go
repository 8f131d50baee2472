package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"edcopilot_chatter_updater/chatter"
	"edcopilot_chatter_updater/config"
	"edcopilot_chatter_updater/metrics"
	"edcopilot_chatter_updater/personalization"
	"edcopilot_chatter_updater/provider"
	"edcopilot_chatter_updater/server"
	"edcopilot_chatter_updater/store"
	"edcopilot_chatter_updater/updater"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	files := flag.String("files", "", "comma-separated categories to update (default: all)")
	maxEntries := flag.Int("max-entries", 0, "entries to request per category (overrides config)")
	keepExisting := flag.Bool("keep-existing", false, "append to existing entries instead of replacing them")
	noPersonalization := flag.Bool("no-personalization", false, "skip personalization context")
	noRSS := flag.Bool("no-rss", false, "skip RSS feed context")
	debug := flag.Bool("debug", false, "write to the output dir instead of the EDCoPilot custom dir")
	promptOnly := flag.Bool("prompt-only", false, "save rendered prompts without calling any provider")
	clearCache := flag.Bool("clear-cache", false, "clear the RSS cache and exit")
	cacheInfo := flag.Bool("cache-info", false, "print RSS cache state and exit")
	testProviders := flag.Bool("test", false, "check provider connectivity and exit")
	serve := flag.Bool("serve", false, "start the HTTP server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Cache maintenance commands need no providers or store.
	if *clearCache || *cacheInfo {
		if err := runCacheCommand(cfg, logger, *clearCache); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	clients, err := buildClients(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *testProviders {
		if err := runConnectivityTest(ctx, clients, logger); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	failover, err := provider.NewFailover(clients, provider.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}, logger, provider.WithObserver(m.ProviderObserver()))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	st, err := store.New(store.Options{
		CustomDir: cfg.CustomDir,
		BackupDir: cfg.BackupDir,
		OutputDir: cfg.OutputDir,
		Debug:     *debug || *promptOnly,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	profile, err := buildProfile(cfg, logger, !*noRSS)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	u, err := updater.New(updater.Options{
		Failover:       failover,
		Store:          st,
		Profile:        profile,
		Logger:         logger,
		Concurrency:    cfg.Concurrency,
		RequestTimeout: cfg.RequestTimeout,
		Observe: func(sum updater.Summary) {
			m.RunsTotal.WithLabelValues(string(sum.Status)).Inc()
			m.RunDuration.Observe(sum.Duration.Seconds())
			for _, o := range sum.Outcomes {
				cat := string(o.Category)
				m.EntriesAdded.WithLabelValues(cat).Add(float64(o.Added))
				m.EntriesSkipped.WithLabelValues(cat).Add(float64(o.Skipped))
				m.EntriesDropped.WithLabelValues(cat).Add(float64(o.Dropped))
			}
		},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *serve {
		srv, err := server.New(u, logger, reg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		logger.Info("starting http server", zap.String("addr", listen))
		if err := http.ListenAndServe(listen, srv.Routes()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cats, err := parseCategories(*files)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	entries := cfg.EntriesPerCategory
	if *maxEntries > 0 {
		entries = *maxEntries
	}
	mode := store.ModeReplace
	if *keepExisting {
		mode = store.ModeKeepExisting
	}

	sum, err := u.Run(ctx, updater.Request{
		Categories:            cats,
		EntriesPerCategory:    entries,
		Mode:                  mode,
		Personalization:       !*noPersonalization,
		RSS:                   !*noRSS,
		PromptOnly:            *promptOnly,
		PersonalizationChance: cfg.PersonalizationChance,
		RSSChance:             cfg.RSSChance,
		ConditionalsChance:    cfg.ConditionalsChance,
	})
	printSummary(sum)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if sum.Status == updater.StatusPartial {
		os.Exit(2)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// buildClients turns the configured providers into clients, preferred
// provider first.
func buildClients(cfg *config.Config) ([]provider.Client, error) {
	if cfg.Preferred == "mock" {
		return []provider.Client{provider.MockClient{}}, nil
	}
	var clients []provider.Client
	for _, pc := range cfg.ProviderOrder() {
		settings := provider.Settings{
			Provider: pc.Name,
			Model:    pc.Model,
			APIKey:   pc.APIKey,
			BaseURL:  pc.BaseURL,
		}
		switch pc.Name {
		case "openai":
			c, err := provider.NewOpenAIClient(settings)
			if err != nil {
				return nil, err
			}
			clients = append(clients, c)
		case "deepseek":
			// DeepSeek speaks the OpenAI wire protocol.
			if settings.BaseURL == "" {
				settings.BaseURL = "https://api.deepseek.com"
			}
			c, err := provider.NewOpenAIClient(settings)
			if err != nil {
				return nil, err
			}
			clients = append(clients, c)
		case "anthropic":
			c, err := provider.NewAnthropicClient(settings)
			if err != nil {
				return nil, err
			}
			clients = append(clients, c)
		case "mock":
			clients = append(clients, provider.MockClient{})
		default:
			return nil, fmt.Errorf("provider %s not supported", pc.Name)
		}
	}
	return clients, nil
}

func buildProfile(cfg *config.Config, logger *zap.Logger, withRSS bool) (*personalization.Manager, error) {
	profile, err := personalization.LoadProfile(cfg.PersonalizationFile)
	if err != nil {
		return nil, err
	}
	var cache *personalization.FeedCache
	if withRSS {
		cache, err = personalization.NewFeedCache(cfg.CacheDir, cfg.RSSCacheTTL, nil, logger)
		if err != nil {
			return nil, err
		}
	}
	return personalization.NewManager(profile, cache, logger), nil
}

func parseCategories(files string) ([]chatter.Category, error) {
	if files == "" {
		return nil, nil
	}
	var cats []chatter.Category
	for _, name := range strings.Split(files, ",") {
		cat := chatter.Category(strings.TrimSpace(name))
		if !chatter.Valid(cat) {
			return nil, fmt.Errorf("unknown category %q (valid: %v)", name, chatter.AllCategories)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func runCacheCommand(cfg *config.Config, logger *zap.Logger, clear bool) error {
	cache, err := personalization.NewFeedCache(cfg.CacheDir, cfg.RSSCacheTTL, nil, logger)
	if err != nil {
		return err
	}
	if clear {
		removed, err := cache.Clear("")
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d cached feed(s)\n", removed)
		return nil
	}
	info, err := cache.Info()
	if err != nil {
		return err
	}
	fmt.Printf("cache dir: %s (ttl %.1fh)\n", info.Dir, info.TTLHours)
	if len(info.Feeds) == 0 {
		fmt.Println("no cached feeds")
		return nil
	}
	for _, f := range info.Feeds {
		state := "stale"
		if f.Valid {
			state = "valid"
		}
		fmt.Printf("  %s  age %.1fh  %s\n", f.File, f.AgeHours, state)
	}
	return nil
}

// runConnectivityTest sends a one-line prompt to each configured
// provider and reports per-provider success.
func runConnectivityTest(ctx context.Context, clients []provider.Client, logger *zap.Logger) error {
	failures := 0
	for _, c := range clients {
		res, err := c.Generate(ctx, "Reply with the single word: ready")
		if err != nil {
			failures++
			logger.Error("provider check failed", zap.String("provider", c.Name()), zap.Error(err))
			fmt.Printf("%-12s FAILED: %v\n", c.Name(), err)
			continue
		}
		fmt.Printf("%-12s OK (%s, %d tokens)\n", c.Name(), res.Latency.Round(time.Millisecond), res.TokensUsed)
	}
	if failures > 0 {
		return fmt.Errorf("%d provider(s) failed the connectivity check", failures)
	}
	return nil
}

func printSummary(sum updater.Summary) {
	if sum.RunID == "" {
		return
	}
	fmt.Printf("run %s: %s in %s\n", sum.RunID, sum.Status, sum.Duration.Round(time.Millisecond))
	for _, o := range sum.Outcomes {
		if o.Status == updater.StatusSuccess {
			fmt.Printf("  %-20s added=%d skipped=%d dropped=%d", o.Category, o.Added, o.Skipped, o.Dropped)
			if o.Backup != "" {
				fmt.Printf(" backup=%s", o.Backup)
			}
			fmt.Println()
			continue
		}
		fmt.Printf("  %-20s FAILED: %v\n", o.Category, o.Err)
	}
}
