package chatter

import (
	"errors"
	"regexp"
	"strings"
)

const (
	exampleStart = "[example]"
	exampleEnd   = "[/example]"
)

// ErrNoValidEntries is returned when nothing usable survived parsing.
var ErrNoValidEntries = errors.New("no valid entries in generated content")

// LengthStats buckets entries by dialogue length. Recorded for
// observability only; never used to reject content.
type LengthStats struct {
	Short    int // 1-2 lines
	Medium   int // 3-4 lines
	Long     int // 5-6 lines
	Extended int // 7+ lines
}

func (s *LengthStats) add(n int) {
	switch {
	case n <= 2:
		s.Short++
	case n <= 4:
		s.Medium++
	case n <= 6:
		s.Long++
	default:
		s.Extended++
	}
}

// ParseResult carries the surviving entries plus counts of what the
// parser had to discard or repair along the way.
type ParseResult struct {
	Entries        []Entry
	DroppedEntries int
	DroppedLines   int
	Lengths        LengthStats
}

var (
	doubleSpeakerRe = regexp.MustCompile(`\[<<([^>]+)>\]`)
	doubleTagRe     = regexp.MustCompile(`\(<<([^>]+)>\)`)
	multiSpaceRe    = regexp.MustCompile(` +`)
	speakerLineRe   = regexp.MustCompile(`^\[<([^>]+)>\]\s*(.*)$`)
	leadingTagRe    = regexp.MustCompile(`^\(([^)\s]+)\)\s*`)
	anyTagRe        = regexp.MustCompile(`\s*\([^)]+\)\s*`)
)

// Model output drifts toward tags the file format does not know.
// These are the observed variants mapped onto the official three.
var tagFixes = []struct {
	re  *regexp.Regexp
	out string
}{
	{regexp.MustCompile(`(?i)\(not-in-station\)`), "(not-station)"},
	{regexp.MustCompile(`(?i)\(not-on-planet\)`), "(not-planet)"},
	{regexp.MustCompile(`(?i)\(not-in-deep-space\)`), "(not-deep-space)"},
	{regexp.MustCompile(`(?i)\(deep-space\)`), "(not-deep-space)"},
	{regexp.MustCompile(`(?i)\((exploring|in-combat|trading|mining|fuel-low|damage|near-nebula|near-black-hole|near-neutron-star|asteroid-field|unknown-region|distant-system|void|anomaly)\)`), "(not-station)"},
}

var speakerFixes = []struct {
	re  *regexp.Regexp
	out string
}{
	{regexp.MustCompile(`(?i)\[<Medical>\]`), "[<Crew:Medical>]"},
	{regexp.MustCompile(`(?i)\[<Tactical>\]`), "[<Crew:Tactical>]"},
	{regexp.MustCompile(`(?i)\[<Communications>\]`), "[<Comms>]"},
	{regexp.MustCompile(`(?i)\[<Comm>\]`), "[<Comms>]"},
	{regexp.MustCompile(`(?i)\[<(Commander|Captain|Crew)>\]`), "[<Number1>]"},
}

// Parse turns raw generated text into entries for cat. Malformed
// fragments are dropped and counted; the only hard failure is a batch
// with zero valid entries.
func Parse(raw string, cat Category) (ParseResult, error) {
	def, ok := Lookup(cat)
	if !ok {
		return ParseResult{}, errors.New("unknown category: " + string(cat))
	}

	cleaned := cleanup(raw, cat, def)

	var res ParseResult
	if def.HasSpeakers {
		parseBlocks(cleaned, def, &res)
	} else {
		parsePhrases(cleaned, &res)
	}

	if len(res.Entries) == 0 {
		return res, ErrNoValidEntries
	}
	return res, nil
}

// cleanup repairs the recurring formatting defects in model output
// before any structural parsing happens.
func cleanup(raw string, cat Category, def Definition) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = doubleSpeakerRe.ReplaceAllString(s, "[<$1>]")
	s = doubleTagRe.ReplaceAllString(s, "(<$1>)")

	if def.HasSpeakers {
		for _, f := range tagFixes {
			s = f.re.ReplaceAllString(s, f.out)
		}
		// Crew and deep-space share the specialized-role roster.
		if cat == CrewChatter || cat == DeepSpaceChatter {
			for _, f := range speakerFixes {
				s = f.re.ReplaceAllString(s, f.out)
			}
		}
	}

	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = multiSpaceRe.ReplaceAllString(strings.TrimSpace(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// parseBlocks handles marker-delimited conversations. An unterminated
// block at the end of the text is dropped, as is any block with no
// valid speaker line.
func parseBlocks(s string, def Definition, res *ParseResult) {
	var (
		inBlock bool
		block   []string
	)
	for _, line := range strings.Split(s, "\n") {
		switch line {
		case exampleStart:
			if inBlock {
				// Start marker inside a block: the previous block never
				// terminated, discard it.
				res.DroppedEntries++
			}
			inBlock = true
			block = block[:0]
		case exampleEnd:
			if !inBlock {
				continue
			}
			inBlock = false
			if e, dropped, ok := buildEntry(block, def); ok {
				res.Entries = append(res.Entries, e)
				res.DroppedLines += dropped
				res.Lengths.add(len(e.Lines))
			} else {
				res.DroppedEntries++
				res.DroppedLines += dropped
			}
		default:
			if inBlock {
				block = append(block, line)
			}
			// Text between blocks is commentary the model was told not
			// to produce; ignore it.
		}
	}
	if inBlock {
		res.DroppedEntries++
	}
}

// buildEntry validates the content lines of one block. Lines without a
// speaker marker are rejected individually; unknown speakers are
// repaired to the category default. Context tags are metadata only on
// the first kept line; elsewhere parenthesized text rides along as
// literal message content.
func buildEntry(block []string, def Definition) (Entry, int, bool) {
	var e Entry
	dropped := 0
	for _, line := range block {
		m := speakerLineRe.FindStringSubmatch(line)
		if m == nil {
			dropped++
			continue
		}
		speaker, rest := m[1], strings.TrimSpace(m[2])

		var tags []string
		if len(e.Lines) == 0 {
			for {
				tm := leadingTagRe.FindStringSubmatch(rest)
				if tm == nil {
					break
				}
				tag := "(" + tm[1] + ")"
				if def.validTag(tag) {
					tags = append(tags, tag)
				}
				rest = rest[len(tm[0]):]
			}
		}
		if rest == "" {
			// Speaker with no message is the signature of a truncated
			// generation; reject the line.
			dropped++
			continue
		}
		if !def.validSpeaker(speaker) {
			speaker = def.DefaultSpeaker
		}
		e.Lines = append(e.Lines, Line{Speaker: speaker, Tags: tags, Text: rest})
	}
	return e, dropped, len(e.Lines) > 0
}

// parsePhrases handles the no-speaker category: one phrase per line.
func parsePhrases(s string, res *ParseResult) {
	for _, line := range strings.Split(s, "\n") {
		if line == exampleStart || line == exampleEnd {
			continue
		}
		line = strings.TrimPrefix(line, "- ")
		// Chit chat never carries context tags; strip any the model
		// invented.
		line = strings.TrimSpace(anyTagRe.ReplaceAllString(line, " "))
		line = multiSpaceRe.ReplaceAllString(line, " ")
		if line == "" {
			res.DroppedLines++
			continue
		}
		res.Entries = append(res.Entries, Entry{Lines: []Line{{Text: line}}})
		res.Lengths.add(1)
	}
}
