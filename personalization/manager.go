package personalization

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Manager combines a parsed profile with the feed cache and exposes
// the strings the prompt templates bind.
type Manager struct {
	profile *Profile
	cache   *FeedCache
	logger  *zap.Logger
}

// NewManager wires a profile to its feed cache. cache may be nil when
// RSS is disabled.
func NewManager(profile *Profile, cache *FeedCache, logger *zap.Logger) *Manager {
	if profile == nil {
		profile = &Profile{Sections: map[string][]string{}}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{profile: profile, cache: cache, logger: logger}
}

// Profile returns the underlying parsed profile.
func (m *Manager) Profile() *Profile { return m.profile }

// Bindings produces the template variables this profile contributes.
// Either half can be switched off; disabled halves bind empty strings
// so the templates still render.
func (m *Manager) Bindings(ctx context.Context, includeProfile, includeRSS bool) map[string]string {
	vars := map[string]string{
		"data":                "",
		"themes":              "",
		"conversation_styles": "",
		"rss_summary":         "",
	}
	if includeProfile {
		vars["data"] = m.profile.Data()
		vars["themes"] = m.profile.Themes()
		vars["conversation_styles"] = m.profile.Styles()
	}
	if includeRSS {
		vars["rss_summary"] = m.rssSummary(ctx)
	}
	return vars
}

// rssSummary renders every configured feed's items. A feed that fails
// to fetch is logged and skipped; the other feeds still contribute.
func (m *Manager) rssSummary(ctx context.Context) string {
	if m.cache == nil || len(m.profile.Feeds) == 0 {
		return ""
	}
	var b strings.Builder
	for _, ref := range m.profile.Feeds {
		items, err := m.cache.Items(ctx, ref)
		if err != nil {
			m.logger.Warn("skipping rss feed", zap.String("url", ref.URL), zap.Error(err))
			continue
		}
		if len(items) == 0 {
			continue
		}
		limit := "all"
		if ref.MaxEntries > 0 {
			limit = fmt.Sprintf("%d", ref.MaxEntries)
		}
		fmt.Fprintf(&b, "### From %s (max %s entries):\n", ref.URL, limit)
		for _, item := range items {
			fmt.Fprintf(&b, "**%s**\n", item.Title)
			var content []string
			if item.Summary != "" {
				content = append(content, item.Summary)
			}
			if item.Published != "" {
				content = append(content, "Published: "+item.Published)
			}
			if len(content) > 0 {
				b.WriteString("```\n")
				b.WriteString(strings.Join(content, "\n"))
				b.WriteString("\n```\n")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
