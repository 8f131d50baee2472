package personalization

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `# My Commander Profile

## Data

- Commander Name: Jameson
- Ship: Anaconda "Persephone"
- Home System: Shinrarta Dezhra

## Private Notes

- This section should be ignored entirely.

## Themes

- Long-haul exploration fatigue
- Dry humor about fuel scooping

## RSS Feeds

- [3] https://example.com/galnet/rss.xml
- https://example.com/community/feed

## Conversation Styles

- Understated British banter
`

func TestParseProfileSections(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Commander Name: Jameson",
		`Ship: Anaconda "Persephone"`,
		"Home System: Shinrarta Dezhra",
	}, p.Sections[SectionData])
	assert.Equal(t, []string{"Understated British banter"}, p.Sections[SectionStyles])
	assert.NotContains(t, p.Sections, "Private Notes")
}

func TestParseProfileFeeds(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	require.Len(t, p.Feeds, 2)
	assert.Equal(t, FeedRef{URL: "https://example.com/galnet/rss.xml", MaxEntries: 3}, p.Feeds[0])
	assert.Equal(t, FeedRef{URL: "https://example.com/community/feed", MaxEntries: 0}, p.Feeds[1])
}

func TestBulletedSections(t *testing.T) {
	p, err := ParseProfile([]byte(sampleProfile))
	require.NoError(t, err)

	themes := p.Themes()
	assert.Equal(t, "- Long-haul exploration fatigue\n- Dry humor about fuel scooping", themes)
	assert.Empty(t, (&Profile{Sections: map[string][]string{}}).Data())
}

func TestParseProfilePlainParagraphLines(t *testing.T) {
	src := "## Data\n\nSquadron: The Fatherhood\nPower: Aisling Duval\n"
	p, err := ParseProfile([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"Squadron: The Fatherhood", "Power: Aisling Duval"}, p.Sections[SectionData])
}

func TestLoadProfileMissingFileIsEmpty(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.md"))
	require.NoError(t, err)
	assert.Empty(t, p.Sections)
	assert.Empty(t, p.Feeds)
}

func TestLoadProfileReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personalization.md")
	require.NoError(t, os.WriteFile(path, []byte(sampleProfile), 0o644))
	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Sections[SectionData])
}
