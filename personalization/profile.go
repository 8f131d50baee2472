// Package personalization turns the user's personalization.md file
// and their RSS feeds into the context blocks the prompt templates
// consume.
package personalization

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Section names recognized in personalization.md. Anything else is
// ignored so users can keep private notes in the same file.
const (
	SectionData   = "Data"
	SectionThemes = "Themes"
	SectionFeeds  = "RSS Feeds"
	SectionStyles = "Conversation Styles"
)

var validSections = map[string]bool{
	SectionData:   true,
	SectionThemes: true,
	SectionFeeds:  true,
	SectionStyles: true,
}

// FeedRef is one feed declared in the RSS Feeds section.
// "[5] https://example.com/rss.xml" caps that feed at 5 items;
// a bare URL means no per-feed cap (MaxEntries 0).
type FeedRef struct {
	URL        string
	MaxEntries int
}

// Profile holds the parsed personalization file.
type Profile struct {
	Sections map[string][]string
	Feeds    []FeedRef
}

var (
	feedLimitRe = regexp.MustCompile(`\[(\d+)\]\s*(https?://[^\s<>"{}|\\^` + "`" + `\[\]]+)`)
	urlRe       = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)
)

// LoadProfile reads and parses the personalization file. A missing
// file yields an empty profile, not an error, since personalization
// is optional.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Profile{Sections: map[string][]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read personalization file %s: %w", path, err)
	}
	return ParseProfile(raw)
}

// ParseProfile walks the markdown AST: level-2 headings open
// sections, list items and paragraph lines inside a recognized
// section become its items.
func ParseProfile(src []byte) (*Profile, error) {
	p := &Profile{Sections: map[string][]string{}}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	current := ""
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			name := strings.TrimSpace(string(n.Text(src)))
			if n.Level == 2 && validSections[name] {
				current = name
			} else {
				current = ""
			}
		case *ast.List:
			if current == "" {
				continue
			}
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				p.addItem(current, nodeText(item, src))
			}
		case *ast.Paragraph:
			if current == "" {
				continue
			}
			for _, line := range strings.Split(nodeText(n, src), "\n") {
				p.addItem(current, line)
			}
		}
	}
	return p, nil
}

func (p *Profile) addItem(section, raw string) {
	item := strings.TrimSpace(raw)
	item = strings.TrimPrefix(item, "- ")
	if item == "" {
		return
	}
	p.Sections[section] = append(p.Sections[section], item)
	if section == SectionFeeds {
		if ref, ok := parseFeedRef(item); ok {
			p.Feeds = append(p.Feeds, ref)
		}
	}
}

func parseFeedRef(line string) (FeedRef, bool) {
	if m := feedLimitRe.FindStringSubmatch(line); m != nil {
		var limit int
		fmt.Sscanf(m[1], "%d", &limit)
		return FeedRef{URL: m[2], MaxEntries: limit}, true
	}
	if url := urlRe.FindString(line); url != "" {
		return FeedRef{URL: url}, true
	}
	return FeedRef{}, false
}

// nodeText flattens a node's inline text, joining block children with
// newlines so multi-line list items keep their line breaks.
func nodeText(node ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
			return
		case *ast.AutoLink:
			b.Write(t.URL(src))
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

// bulleted renders section items as a markdown bullet list, the shape
// the prompt templates expect.
func (p *Profile) bulleted(section string) string {
	items := p.Sections[section]
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// Data returns the formatted Data section.
func (p *Profile) Data() string { return p.bulleted(SectionData) }

// Themes returns the formatted Themes section.
func (p *Profile) Themes() string { return p.bulleted(SectionThemes) }

// Styles returns the formatted Conversation Styles section.
func (p *Profile) Styles() string { return p.bulleted(SectionStyles) }
