package chatter

import (
	"strings"
)

// Line is a single spoken line inside an entry. Speaker is empty for
// chit chat; Tags only carry meaning on the first line of an entry.
type Line struct {
	Speaker string
	Tags    []string
	Text    string
}

// Entry is one self-contained conversation unit: a marker-delimited
// block for speaker categories, a single phrase for chit chat. It is
// the atomic unit of dedup and merge.
type Entry struct {
	Lines []Line
}

// Key returns the normalized identity used for deduplication: the
// ordered line texts, lowercased with whitespace collapsed. Speaker
// and tag differences do not make two entries distinct.
func (e Entry) Key() string {
	var b strings.Builder
	for i, l := range e.Lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(normalizeText(l.Text))
	}
	return b.String()
}

// Speakers returns the ordered speaker tags of the entry. Empty for
// chit chat.
func (e Entry) Speakers() []string {
	var out []string
	for _, l := range e.Lines {
		if l.Speaker != "" {
			out = append(out, l.Speaker)
		}
	}
	return out
}

// ContextTags returns the tags of the first line, the only place they
// count as metadata.
func (e Entry) ContextTags() []string {
	if len(e.Lines) == 0 {
		return nil
	}
	return e.Lines[0].Tags
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Render writes the entry back in the target file format for cat.
func (e Entry) Render(cat Category) string {
	def, _ := Lookup(cat)
	if !def.HasSpeakers {
		if len(e.Lines) == 0 {
			return ""
		}
		return e.Lines[0].Text
	}
	var b strings.Builder
	b.WriteString(exampleStart)
	b.WriteByte('\n')
	for _, l := range e.Lines {
		b.WriteString("[<")
		b.WriteString(l.Speaker)
		b.WriteString(">]")
		for _, t := range l.Tags {
			b.WriteByte(' ')
			b.WriteString(t)
		}
		b.WriteByte(' ')
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	b.WriteString(exampleEnd)
	return b.String()
}

// RenderAll joins entries into full file content, with a blank line
// between marker blocks for readability.
func RenderAll(entries []Entry, cat Category) string {
	def, _ := Lookup(cat)
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Render(cat))
	}
	sep := "\n"
	if def.HasSpeakers {
		sep = "\n\n"
	}
	out := strings.Join(parts, sep)
	if out != "" {
		out += "\n"
	}
	return out
}
