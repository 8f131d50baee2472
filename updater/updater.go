// Package updater orchestrates a full update run: render prompts,
// call providers, parse and deduplicate the responses, and merge them
// into the target files.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"edcopilot_chatter_updater/chatter"
	"edcopilot_chatter_updater/personalization"
	"edcopilot_chatter_updater/prompt"
	"edcopilot_chatter_updater/provider"
	"edcopilot_chatter_updater/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status is the terminal state of a run or one of its categories.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusFailed  Status = "FAILED"
)

// Request describes one update run.
type Request struct {
	Categories []chatter.Category
	// EntriesPerCategory is how many entries each prompt asks for.
	EntriesPerCategory int
	Mode               store.Mode
	// Personalization and RSS toggle the profile and feed halves of
	// the prompt context.
	Personalization bool
	RSS             bool
	// PromptOnly renders and saves the prompts without calling any
	// provider or touching target files.
	PromptOnly bool

	PersonalizationChance int
	RSSChance             int
	ConditionalsChance    int
}

// Outcome is the per-category result. Failures are category-local:
// one category failing never blocks the others.
type Outcome struct {
	Category chatter.Category
	Status   Status
	Provider string
	Added    int
	Skipped  int
	Dropped  int
	Backup   string
	Err      error
}

// MarshalJSON renders Err as its message: a bare error interface has
// no JSON form, and callers behind the HTTP API still need the
// per-category failure reason.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type outcomeJSON Outcome
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return json.Marshal(struct {
		outcomeJSON
		Err string `json:",omitempty"`
	}{outcomeJSON(o), msg})
}

// Summary aggregates a run.
type Summary struct {
	RunID    string
	Status   Status
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome
}

// Updater wires the pipeline stages together.
type Updater struct {
	failover *provider.Failover
	store    *store.Store
	profile  *personalization.Manager
	logger   *zap.Logger

	concurrency    int
	requestTimeout time.Duration
	observe        func(Summary)
}

// Options configures an Updater.
type Options struct {
	Failover *provider.Failover
	Store    *store.Store
	Profile  *personalization.Manager
	Logger   *zap.Logger
	// Concurrency bounds how many categories run at once.
	Concurrency int
	// RequestTimeout bounds one full failover chain per category;
	// zero means no per-category limit beyond the run context.
	RequestTimeout time.Duration
	// Observe, when set, receives each finished run's summary.
	Observe func(Summary)
}

// New validates the wiring and returns an Updater.
func New(opts Options) (*Updater, error) {
	if opts.Failover == nil {
		return nil, fmt.Errorf("failover chain is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if opts.Profile == nil {
		opts.Profile = personalization.NewManager(nil, nil, nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	return &Updater{
		failover:       opts.Failover,
		store:          opts.Store,
		profile:        opts.Profile,
		logger:         opts.Logger,
		concurrency:    opts.Concurrency,
		requestTimeout: opts.RequestTimeout,
		observe:        opts.Observe,
	}, nil
}

// Run executes one update run. Categories proceed concurrently up to
// the configured limit; the summary is always returned, with the
// error set only when the run failed wholesale.
func (u *Updater) Run(ctx context.Context, req Request) (Summary, error) {
	if len(req.Categories) == 0 {
		req.Categories = chatter.AllCategories
	}
	if req.EntriesPerCategory <= 0 {
		req.EntriesPerCategory = 25
	}
	if req.Mode == "" {
		req.Mode = store.ModeReplace
	}
	for _, cat := range req.Categories {
		if !chatter.Valid(cat) {
			return Summary{}, fmt.Errorf("unknown category %q", cat)
		}
	}

	summary := Summary{
		RunID:    uuid.NewString(),
		Started:  time.Now(),
		Outcomes: make([]Outcome, len(req.Categories)),
	}
	log := u.logger.With(zap.String("run_id", summary.RunID))
	log.Info("run starting",
		zap.Int("categories", len(req.Categories)),
		zap.String("mode", string(req.Mode)),
		zap.Bool("prompt_only", req.PromptOnly),
		zap.Strings("providers", u.failover.Providers()))

	// Bindings are shared across categories, so feeds are fetched at
	// most once per run.
	shared := u.profile.Bindings(ctx, req.Personalization, req.RSS)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for i, cat := range req.Categories {
		g.Go(func() error {
			summary.Outcomes[i] = u.runCategory(gctx, log, req, cat, shared)
			return nil
		})
	}
	// Workers never return errors; per-category failures live in the
	// outcomes.
	_ = g.Wait()

	summary.Duration = time.Since(summary.Started)
	summary.Status = overallStatus(summary.Outcomes)
	log.Info("run finished",
		zap.String("status", string(summary.Status)),
		zap.Duration("duration", summary.Duration))

	if u.observe != nil {
		u.observe(summary)
	}
	if summary.Status == StatusFailed {
		return summary, fmt.Errorf("run %s failed: no category succeeded", summary.RunID)
	}
	return summary, nil
}

func overallStatus(outcomes []Outcome) Status {
	succeeded := 0
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			succeeded++
		}
	}
	switch succeeded {
	case len(outcomes):
		return StatusSuccess
	case 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// runCategory drives one category through the full pipeline. Every
// error is captured in the outcome rather than propagated.
func (u *Updater) runCategory(ctx context.Context, log *zap.Logger, req Request, cat chatter.Category, shared map[string]string) Outcome {
	out := Outcome{Category: cat, Status: StatusFailed}
	log = log.With(zap.String("category", string(cat)))

	def, _ := chatter.Lookup(cat)
	vars := map[string]string{
		"category":               string(cat),
		"num_entries":            strconv.Itoa(req.EntriesPerCategory),
		"personalization_chance": strconv.Itoa(req.PersonalizationChance),
		"rss_chance":             strconv.Itoa(req.RSSChance),
		"conditionals_chance":    strconv.Itoa(req.ConditionalsChance),
	}
	for k, v := range shared {
		vars[k] = v
	}

	promptText, err := prompt.Render(def.TemplateID, vars)
	if err != nil {
		out.Err = err
		log.Error("prompt rendering failed", zap.Error(err))
		return out
	}

	if req.PromptOnly {
		path := u.store.OutputPath(string(cat) + "_prompt.txt")
		if err := os.WriteFile(path, []byte(promptText), 0o644); err != nil {
			out.Err = fmt.Errorf("save prompt: %w", err)
			return out
		}
		log.Info("prompt saved", zap.String("path", path))
		out.Status = StatusSuccess
		return out
	}

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	genCtx := ctx
	if u.requestTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, u.requestTimeout)
		defer cancel()
	}
	res, err := u.failover.Generate(genCtx, promptText)
	if err != nil {
		out.Err = err
		log.Error("generation failed", zap.Error(err))
		return out
	}
	out.Provider = res.Provider

	parsed, err := chatter.Parse(res.Text, cat)
	if err != nil {
		out.Err = err
		log.Error("response yielded no valid entries", zap.Error(err))
		return out
	}
	out.Dropped = parsed.DroppedEntries
	if parsed.DroppedEntries > 0 || parsed.DroppedLines > 0 {
		log.Warn("dropped malformed content",
			zap.Int("entries", parsed.DroppedEntries),
			zap.Int("lines", parsed.DroppedLines))
	}
	log.Info("entry length distribution",
		zap.Int("short", parsed.Lengths.Short),
		zap.Int("medium", parsed.Lengths.Medium),
		zap.Int("long", parsed.Lengths.Long),
		zap.Int("extended", parsed.Lengths.Extended))

	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	state, err := u.store.Load(cat)
	if err != nil {
		out.Err = err
		log.Error("loading target failed", zap.Error(err))
		return out
	}
	merged, err := u.store.Update(cat, state, parsed.Entries, req.Mode)
	if err != nil {
		out.Err = err
		log.Error("updating target failed", zap.Error(err))
		return out
	}

	out.Status = StatusSuccess
	out.Added = merged.Added
	out.Skipped = merged.Skipped
	if merged.Backup != nil {
		out.Backup = merged.Backup.Path
	}
	log.Info("category updated",
		zap.String("provider", res.Provider),
		zap.Int("added", out.Added),
		zap.Int("skipped", out.Skipped),
		zap.Int("dropped", out.Dropped),
		zap.Duration("latency", res.Latency))
	return out
}
